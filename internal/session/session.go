// Package session holds the application state of one interactive user:
// the current query, whether a request is in flight, and the last result
// or error.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/stocklens/internal/client"
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/metrics"
	"github.com/newthinker/stocklens/internal/query"
	"github.com/newthinker/stocklens/internal/view"
)

// State is the session's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateDisplaying State = "displaying"
	StateFailed     State = "failed"
)

// Fetcher retrieves an analysis bundle. *client.Client satisfies it.
type Fetcher interface {
	Analyze(ctx context.Context, q query.Query) (*core.StockAnalysis, error)
}

// Snapshot is a consistent copy of the session. Result and Err are never
// both set.
type Snapshot struct {
	State  State
	Query  query.Query
	Result *view.Model
	Err    string
	Seq    uint64
}

// Session serializes state transitions. Requests run outside the lock;
// only the most recently issued one may complete the session.
type Session struct {
	fetcher Fetcher
	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu     sync.RWMutex
	state  State
	query  query.Query
	result *view.Model
	err    string
	seq    uint64
}

// New creates an idle session. logger and reg may be nil.
func New(fetcher Fetcher, logger *zap.Logger, reg *metrics.Registry) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		fetcher: fetcher,
		logger:  logger,
		metrics: reg,
		now:     time.Now,
		state:   StateIdle,
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:  s.state,
		Query:  s.query,
		Result: s.result,
		Err:    s.err,
		Seq:    s.seq,
	}
}

// Submit validates in and, if valid, fetches and presents the analysis.
// A validation failure is returned and leaves the session untouched. Once
// dispatched, the outcome is reported through the returned snapshot; a
// response overtaken by a newer Submit is discarded and the snapshot
// reflects the newer request.
func (s *Session) Submit(ctx context.Context, in query.Input) (Snapshot, error) {
	q, err := query.Validate(in)
	if err != nil {
		s.metrics.RecordQuery(metrics.OutcomeRejected, 0)
		s.logger.Debug("query rejected", zap.String("ticker", in.Ticker), zap.Error(err))
		return s.Snapshot(), err
	}

	seq := s.begin(q)
	log := s.logger.With(zap.String("ticker", q.Ticker), zap.Uint64("seq", seq))
	log.Info("analysis requested",
		zap.Int("prediction_days", q.PredictionDays),
		zap.String("model_type", string(q.ModelType)),
	)

	start := s.now()
	analysis, err := s.fetcher.Analyze(ctx, q)

	var model *view.Model
	if err == nil {
		model, err = view.New(analysis)
	}

	if !s.complete(seq, model, err) {
		s.metrics.RecordStale()
		log.Debug("discarded stale response")
		return s.Snapshot(), nil
	}

	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.RecordQuery(metrics.OutcomeFailed, elapsed.Seconds())
		log.Warn("analysis failed", zap.Error(err))
	} else {
		s.metrics.RecordQuery(metrics.OutcomeDisplayed, elapsed.Seconds())
		s.metrics.MarkQueried(q.Ticker, float64(s.now().Unix()))
		log.Info("analysis displayed", zap.Duration("elapsed", elapsed))
	}
	return s.Snapshot(), nil
}

// Reset returns the session to idle. Any request still in flight is
// discarded when it completes.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = StateIdle
	s.query = query.Query{}
	s.result = nil
	s.err = ""
}

func (s *Session) begin(q query.Query) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = StateLoading
	s.query = q
	s.result = nil
	s.err = ""
	return s.seq
}

// complete applies a response if seq is still the latest request.
func (s *Session) complete(seq uint64, model *view.Model, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	if err != nil {
		s.state = StateFailed
		s.err = client.Message(err)
		return true
	}
	s.state = StateDisplaying
	s.result = model
	return true
}
