// Package client talks to the remote analysis service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/metrics"
	"github.com/newthinker/stocklens/internal/query"
	"github.com/newthinker/stocklens/internal/trace"
)

const (
	analyzePath = "/api/analyze"
	healthPath  = "/health"

	// GenericMessage is shown when a failure carries no usable text.
	GenericMessage = "Failed to analyze stock. Please try again."

	// maxErrorBody caps how much of a failed response is read for its detail.
	maxErrorBody = 64 << 10
)

// Config holds the service endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ServiceError is a failed exchange reduced to what the user is shown.
// Status is zero for transport failures.
type ServiceError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *ServiceError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client is an analysis service client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a client. reg may be nil.
func New(cfg Config, logger *zap.Logger, reg *metrics.Registry) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: metrics.Transport(reg, nil),
		},
		logger: logger,
	}
}

// Analyze requests the analysis bundle for q. Failures are ErrServiceFailed
// wrapping a *ServiceError; payloads that decode but break the contract are
// ErrContractViolation.
func (c *Client) Analyze(ctx context.Context, q query.Query) (*core.StockAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.fetch",
		attribute.String("ticker", q.Ticker),
		attribute.Int("prediction_days", q.PredictionDays),
		attribute.String("model_type", string(q.ModelType)),
	)
	defer span.End()

	a, err := c.analyze(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Message(err))
		return nil, err
	}
	return a, nil
}

func (c *Client) analyze(ctx context.Context, q query.Query) (*core.StockAnalysis, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With(
		zap.String("ticker", q.Ticker),
		zap.String("request_id", requestID),
	)
	log.Debug("dispatching analysis request",
		zap.Int("prediction_days", q.PredictionDays),
		zap.String("model_type", string(q.ModelType)),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("analysis request failed", zap.Error(err))
		return nil, core.WrapError(core.ErrServiceFailed, &ServiceError{
			Message:   transportMessage(err),
			RequestID: requestID,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := statusError(resp, requestID)
		log.Warn("analysis service returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", serr.Message),
		)
		return nil, core.WrapError(core.ErrServiceFailed, serr)
	}

	var a core.StockAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		log.Warn("undecodable analysis payload", zap.Error(err))
		// Enum rejections already carry their code and reason
		var cerr *core.Error
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, core.WrapError(core.ErrContractViolation, fmt.Errorf("decoding response: %w", err))
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if dropped := a.MalformedFields(); len(dropped) > 0 {
		log.Warn("malformed optional values treated as absent", zap.Strings("fields", dropped))
	}

	log.Debug("analysis received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("historical", len(a.HistoricalPrices)),
		zap.Int("predictions", len(a.Predictions)),
	)
	return &a, nil
}

// Health probes the service and returns its reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.health")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", core.WrapError(core.ErrServiceUnavailable, &ServiceError{Message: transportMessage(err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", core.WrapError(core.ErrServiceUnavailable, statusError(resp, ""))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("reading health response: %w", err)
	}
	status := gjson.GetBytes(b, "status").String()
	if status == "" {
		status = "unknown"
	}
	return status, nil
}

// Message reduces any client error to the single string shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var serr *ServiceError
	if errors.As(err, &serr) {
		if serr.Message != "" {
			return serr.Message
		}
		return GenericMessage
	}
	var cerr *core.Error
	if errors.As(err, &cerr) && cerr.Cause != nil {
		if msg := cerr.Cause.Error(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericMessage
}

func statusError(resp *http.Response, requestID string) *ServiceError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := detailMessage(b)
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
	}
	return &ServiceError{Status: resp.StatusCode, Message: msg, RequestID: requestID}
}

// detailMessage extracts the "detail" field of an error body. A list of
// validation entries is flattened to their msg fields.
func detailMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case !detail.Exists():
		return ""
	case detail.Type == gjson.String:
		return strings.TrimSpace(detail.String())
	case detail.IsArray():
		var msgs []string
		for _, item := range detail.Array() {
			m := item
			if item.IsObject() {
				m = item.Get("msg")
			}
			if s := strings.TrimSpace(m.String()); s != "" {
				msgs = append(msgs, s)
			}
		}
		return strings.Join(msgs, "; ")
	case detail.IsObject():
		if m := detail.Get("msg"); m.Exists() {
			return strings.TrimSpace(m.String())
		}
		return detail.Raw
	default:
		return detail.String()
	}
}

// transportMessage unwraps the url.Error decoration so the user sees the
// underlying cause.
func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	if u := errors.Unwrap(err); u != nil {
		return u.Error()
	}
	return err.Error()
}
