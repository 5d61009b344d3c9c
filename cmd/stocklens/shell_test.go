package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/stocklens/internal/client"
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/query"
	"github.com/newthinker/stocklens/internal/render"
	"github.com/newthinker/stocklens/internal/session"
)

type stubFetcher struct {
	queries []query.Query
}

func (f *stubFetcher) Analyze(_ context.Context, q query.Query) (*core.StockAnalysis, error) {
	f.queries = append(f.queries, q)
	if q.Ticker == "XYZ" {
		return nil, core.WrapError(core.ErrServiceFailed, &client.ServiceError{Status: 404, Message: "Stock XYZ not found"})
	}
	return &core.StockAnalysis{
		Stock:          core.Stock{Ticker: q.Ticker, Name: q.Ticker + " Corp", Currency: "USD"},
		LatestPrice:    10,
		Recommendation: core.Recommendation{Action: core.ActionBuy, ConfidenceScore: 0.9, CurrentPrice: 10},
	}, nil
}

func newTestShell() (*shell, *stubFetcher, *bytes.Buffer) {
	f := &stubFetcher{}
	out := &bytes.Buffer{}
	return &shell{
		session: session.New(f, nil, nil),
		log:     zap.NewNop(),
		out:     out,
		days:    30,
		model:   "xgboost",
		format:  render.FormatText,
	}, f, out
}

func TestShell_Run(t *testing.T) {
	sh, f, out := newTestShell()

	input := strings.Join([]string{
		"",
		"days 7",
		"model LSTM",
		"aapl",
		"msft 14 xgboost",
		"XYZ",
		"quit",
		"never reached",
	}, "\n")
	require.NoError(t, sh.run(context.Background(), strings.NewReader(input)))

	require.Len(t, f.queries, 3)
	assert.Equal(t, query.Query{Ticker: "AAPL", PredictionDays: 7, ModelType: core.ModelLSTM}, f.queries[0])
	assert.Equal(t, query.Query{Ticker: "MSFT", PredictionDays: 14, ModelType: core.ModelXGBoost}, f.queries[1])

	assert.Contains(t, out.String(), "AAPL  AAPL Corp")
	assert.Contains(t, out.String(), "Error: Stock XYZ not found")
}

func TestShell_RejectsInvalidSelections(t *testing.T) {
	sh, f, _ := newTestShell()
	ctx := context.Background()

	assert.Error(t, sh.exec(ctx, "days 10"))
	assert.Error(t, sh.exec(ctx, "days ten"))
	assert.Error(t, sh.exec(ctx, "model arima"))
	assert.Error(t, sh.exec(ctx, "output xml"))
	assert.Error(t, sh.exec(ctx, "AAPL 9"))
	assert.Equal(t, 30, sh.days)
	assert.Equal(t, "xgboost", sh.model)
	assert.Empty(t, f.queries)
}

func TestShell_OutputAndStatus(t *testing.T) {
	sh, _, out := newTestShell()
	ctx := context.Background()

	require.NoError(t, sh.exec(ctx, "output json"))
	require.NoError(t, sh.exec(ctx, "AAPL"))
	assert.Contains(t, out.String(), `"ticker": "AAPL"`)

	out.Reset()
	require.NoError(t, sh.exec(ctx, "status"))
	assert.Equal(t, "days=30 model=xgboost output=json state=displaying ticker=AAPL\n", out.String())

	require.NoError(t, sh.exec(ctx, "reset"))
	assert.Equal(t, session.StateIdle, sh.session.Snapshot().State)
}

func TestShell_EOFEndsSession(t *testing.T) {
	sh, _, _ := newTestShell()
	assert.NoError(t, sh.run(context.Background(), strings.NewReader("help\n")))
}
