package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/newthinker/stocklens/internal/client"
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/metrics"
	"github.com/newthinker/stocklens/internal/query"
)

type fetchFunc func(ctx context.Context, q query.Query) (*core.StockAnalysis, error)

func (f fetchFunc) Analyze(ctx context.Context, q query.Query) (*core.StockAnalysis, error) {
	return f(ctx, q)
}

func analysisFor(ticker string) *core.StockAnalysis {
	return &core.StockAnalysis{
		Stock:       core.Stock{Ticker: ticker, Name: ticker + " Corp", Currency: "USD"},
		LatestPrice: 100,
		Recommendation: core.Recommendation{
			Action:          core.ActionHold,
			ConfidenceScore: 0.5,
			CurrentPrice:    100,
		},
	}
}

func echo() Fetcher {
	return fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		return analysisFor(q.Ticker), nil
	})
}

func TestSession_StartsIdle(t *testing.T) {
	s := New(echo(), nil, nil)
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Err)
}

func TestSession_Displaying(t *testing.T) {
	reg := metrics.NewRegistry()
	s := New(echo(), nil, reg)

	snap, err := s.Submit(context.Background(), query.Input{Ticker: " aapl ", Days: 30, Model: "xgboost"})
	require.NoError(t, err)

	assert.Equal(t, StateDisplaying, snap.State)
	assert.Equal(t, "AAPL", snap.Query.Ticker)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "AAPL", snap.Result.Header.Ticker)
	assert.Empty(t, snap.Err)
	assert.Equal(t, uint64(1), snap.Seq)

	expected := `
# HELP stocklens_queries_total Total number of analysis queries by outcome
# TYPE stocklens_queries_total counter
stocklens_queries_total{outcome="displayed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "stocklens_queries_total"))
}

func TestSession_ValidationLeavesStateUntouched(t *testing.T) {
	called := false
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		called = true
		return analysisFor(q.Ticker), nil
	}), nil, nil)

	_, err := s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	require.NoError(t, err)
	called = false
	before := s.Snapshot()

	tests := []query.Input{
		{Ticker: "   ", Days: 7, Model: "lstm"},
		{Ticker: "MSFT", Days: 10, Model: "lstm"},
		{Ticker: "MSFT", Days: 7, Model: "arima"},
	}
	for _, in := range tests {
		snap, err := s.Submit(context.Background(), in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrValidation))
		assert.Equal(t, before, snap)
	}
	assert.False(t, called, "invalid queries must not be dispatched")
}

func TestSession_Failed(t *testing.T) {
	s := New(fetchFunc(func(context.Context, query.Query) (*core.StockAnalysis, error) {
		return nil, core.WrapError(core.ErrServiceFailed, &client.ServiceError{Status: 404, Message: "Stock XYZ not found"})
	}), nil, nil)

	snap, err := s.Submit(context.Background(), query.Input{Ticker: "XYZ", Days: 7, Model: "lstm"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "Stock XYZ not found", snap.Err)
	assert.Nil(t, snap.Result)
}

func TestSession_ContractViolationFails(t *testing.T) {
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		a := analysisFor(q.Ticker)
		a.Recommendation.Action = "strong_buy"
		return a, nil
	}), nil, nil)

	snap, err := s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.NotEmpty(t, snap.Err)
}

func TestSession_NextQueryClearsError(t *testing.T) {
	fail := true
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return analysisFor(q.Ticker), nil
	}), nil, nil)

	snap, _ := s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	require.Equal(t, StateFailed, snap.State)

	fail = false
	snap, err := s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	require.NoError(t, err)
	assert.Equal(t, StateDisplaying, snap.State)
	assert.Empty(t, snap.Err)
}

func TestSession_LoadingClearsPreviousResult(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	first := true
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		if !first {
			close(entered)
			<-release
		}
		first = false
		return analysisFor(q.Ticker), nil
	}), nil, nil)

	_, err := s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	require.NoError(t, err)

	done := make(chan Snapshot)
	go func() {
		snap, _ := s.Submit(context.Background(), query.Input{Ticker: "MSFT", Days: 14, Model: "lstm"})
		done <- snap
	}()

	<-entered
	loading := s.Snapshot()
	assert.Equal(t, StateLoading, loading.State)
	assert.Nil(t, loading.Result)
	assert.Empty(t, loading.Err)
	assert.Equal(t, "MSFT", loading.Query.Ticker)

	close(release)
	assert.Equal(t, StateDisplaying, (<-done).State)
}

func TestSession_DropsStaleResponse(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	reg := metrics.NewRegistry()

	slowEntered := make(chan struct{})
	releaseSlow := make(chan struct{})
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		if q.Ticker == "SLOW" {
			close(slowEntered)
			<-releaseSlow
		}
		return analysisFor(q.Ticker), nil
	}), zap.New(obsCore), reg)

	var wg sync.WaitGroup
	var slowSnap Snapshot
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowSnap, _ = s.Submit(context.Background(), query.Input{Ticker: "SLOW", Days: 7, Model: "lstm"})
	}()
	<-slowEntered

	fast, err := s.Submit(context.Background(), query.Input{Ticker: "FAST", Days: 7, Model: "lstm"})
	require.NoError(t, err)
	assert.Equal(t, "FAST", fast.Result.Header.Ticker)

	close(releaseSlow)
	wg.Wait()

	// The slow response arrived last but must not overwrite the newer one.
	final := s.Snapshot()
	assert.Equal(t, StateDisplaying, final.State)
	assert.Equal(t, "FAST", final.Result.Header.Ticker)
	assert.Equal(t, final, slowSnap)

	assert.Equal(t, 1, logs.FilterMessage("discarded stale response").Len())
	expected := `
# HELP stocklens_stale_responses_total Responses dropped because a newer query was dispatched
# TYPE stocklens_stale_responses_total counter
stocklens_stale_responses_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "stocklens_stale_responses_total"))
}

func TestSession_ResetDiscardsInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := New(fetchFunc(func(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
		close(entered)
		<-release
		return analysisFor(q.Ticker), nil
	}), nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Submit(context.Background(), query.Input{Ticker: "AAPL", Days: 7, Model: "lstm"})
	}()
	<-entered
	s.Reset()
	close(release)
	<-done

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
}
