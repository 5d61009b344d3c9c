package metrics

import (
	"net/http"
	"time"
)

// roundTripper records metrics for every request it forwards.
type roundTripper struct {
	reg  *Registry
	next http.RoundTripper
}

// Transport wraps next so each outbound request is counted and timed.
// Transport failures are recorded with status "error".
func Transport(reg *Registry, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{reg: reg, next: next}
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t.reg.InFlightInc()
	defer t.reg.InFlightDec()

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	t.reg.RecordRequest(req.Method, req.URL.Path, status, time.Since(start).Seconds())

	return resp, err
}
