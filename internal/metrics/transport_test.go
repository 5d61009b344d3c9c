package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransport_RecordsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := NewRegistry()
	client := &http.Client{Transport: Transport(reg, nil)}

	resp, err := client.Post(srv.URL+"/api/analyze", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("POST", "/api/analyze", "4xx")); got != 1 {
		t.Errorf("expected one 4xx request, got %v", got)
	}
	if got := testutil.ToFloat64(reg.httpRequestsInFlight); got != 0 {
		t.Errorf("expected in-flight back to 0, got %v", got)
	}
}

func TestTransport_RecordsTransportError(t *testing.T) {
	reg := NewRegistry()
	client := &http.Client{Transport: Transport(reg, failingTransport{})}

	_, err := client.Get("http://analysis.invalid/health")
	if err == nil {
		t.Fatal("expected error")
	}

	if got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/health", "error")); got != 1 {
		t.Errorf("expected one errored request, got %v", got)
	}
}
