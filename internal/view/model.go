// Package view derives everything the display needs from one analysis
// bundle. New is a pure function of its input.
package view

import (
	"fmt"

	"github.com/newthinker/stocklens/internal/chart"
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/format"
	"github.com/newthinker/stocklens/internal/recommendation"
	"github.com/newthinker/stocklens/internal/signal"
)

// Header is the stock banner.
type Header struct {
	Ticker    string                   `json:"ticker" yaml:"ticker"`
	Name      string                   `json:"name" yaml:"name"`
	Exchange  string                   `json:"exchange" yaml:"exchange"`
	Sector    string                   `json:"sector" yaml:"sector"`
	Country   string                   `json:"country" yaml:"country"`
	Currency  string                   `json:"currency" yaml:"currency"`
	Price     string                   `json:"price" yaml:"price"`
	Change    string                   `json:"change" yaml:"change"`
	Direction recommendation.Direction `json:"direction" yaml:"direction"`
}

// Reading is one indicator value with its signal.
type Reading struct {
	Name   string        `json:"name" yaml:"name"`
	Value  string        `json:"value" yaml:"value"`
	Signal signal.Signal `json:"signal" yaml:"signal"`
}

// Indicators is the technical panel, built from the latest indicator row.
type Indicators struct {
	Date           string    `json:"date" yaml:"date"`
	RSI            Reading   `json:"rsi" yaml:"rsi"`
	RSIGauge       float64   `json:"rsi_gauge" yaml:"rsi_gauge"`
	MACD           Reading   `json:"macd" yaml:"macd"`
	MACDSignal     string    `json:"macd_signal" yaml:"macd_signal"`
	MACDHistogram  string    `json:"macd_histogram" yaml:"macd_histogram"`
	MovingAverages []Reading `json:"moving_averages" yaml:"moving_averages"`
	EMA12          string    `json:"ema_12" yaml:"ema_12"`
	EMA26          string    `json:"ema_26" yaml:"ema_26"`
}

// Metric is a labelled fundamental ratio.
type Metric struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Model is the render-ready form of a StockAnalysis.
type Model struct {
	Header         Header              `json:"header" yaml:"header"`
	Recommendation recommendation.View `json:"recommendation" yaml:"recommendation"`
	Chart          []chart.Point       `json:"chart" yaml:"chart"`
	ChartSummary   chart.Summary       `json:"chart_summary" yaml:"chart_summary"`
	Indicators     *Indicators         `json:"indicators" yaml:"indicators"`
	Financials     []Metric            `json:"financials" yaml:"financials"`
}

// New composes the view model. Absent values never fail; the only error
// is a contract violation in the recommendation's enumerations.
func New(a *core.StockAnalysis) (*Model, error) {
	if a == nil {
		return nil, core.WrapError(core.ErrContractViolation, fmt.Errorf("empty analysis"))
	}

	rec, err := recommendation.Present(a.Recommendation, a.Stock.Currency)
	if err != nil {
		return nil, fmt.Errorf("presenting recommendation: %w", err)
	}

	points := chart.Build(a.HistoricalPrices, a.Predictions)

	return &Model{
		Header:         header(a),
		Recommendation: rec,
		Chart:          points,
		ChartSummary:   chart.Summarize(points),
		Indicators:     indicators(a.TechnicalIndicators, a.LatestPrice),
		Financials:     financials(a.FinancialSummary),
	}, nil
}

func header(a *core.StockAnalysis) Header {
	dir := recommendation.Up
	if a.PriceChange < 0 {
		dir = recommendation.Down
	}
	return Header{
		Ticker:    a.Stock.Ticker,
		Name:      a.Stock.Name,
		Exchange:  a.Stock.Exchange,
		Sector:    a.Stock.Sector,
		Country:   a.Stock.Country,
		Currency:  a.Stock.Currency,
		Price:     a.Stock.Currency + " " + format.Currency(a.LatestPrice),
		Change:    fmt.Sprintf("%s (%s)", format.Signed(a.PriceChange), format.SignedPercent(a.PriceChangePercent)),
		Direction: dir,
	}
}

// indicators reads only the first row; the producer sends rows newest
// first.
func indicators(rows []core.TechnicalIndicator, price float64) *Indicators {
	if len(rows) == 0 {
		return nil
	}
	latest := rows[0]

	ma := func(name string, v *float64) Reading {
		return Reading{Name: name, Value: format.Fixed(v), Signal: signal.MovingAverage(v, price)}
	}

	return &Indicators{
		Date:          latest.Date.String(),
		RSI:           Reading{Name: "RSI (14)", Value: format.Fixed(latest.RSI14), Signal: signal.RSI(latest.RSI14)},
		RSIGauge:      signal.Gauge(latest.RSI14),
		MACD:          Reading{Name: "MACD", Value: format.Fixed(latest.MACD), Signal: signal.MACD(latest.MACD, latest.MACDSignal)},
		MACDSignal:    format.Fixed(latest.MACDSignal),
		MACDHistogram: format.Fixed(latest.MACDHistogram),
		MovingAverages: []Reading{
			ma("SMA 20", latest.SMA20),
			ma("SMA 50", latest.SMA50),
			ma("SMA 200", latest.SMA200),
		},
		EMA12: format.Fixed(latest.EMA12),
		EMA26: format.Fixed(latest.EMA26),
	}
}

func financials(s core.FinancialSummary) []Metric {
	return []Metric{
		{Label: "Market Cap", Value: format.MarketCap(s.MarketCap)},
		{Label: "P/E Ratio (TTM)", Value: format.Number(s.TrailingPE)},
		{Label: "Forward P/E", Value: format.Number(s.ForwardPE)},
		{Label: "Price/Book", Value: format.Number(s.PriceToBook)},
		{Label: "Debt/Equity", Value: format.Number(s.DebtToEquity)},
		{Label: "ROE", Value: format.Percent(s.ReturnOnEquity)},
		{Label: "Revenue Growth", Value: format.Percent(s.RevenueGrowth)},
		{Label: "Earnings Growth", Value: format.Percent(s.EarningsGrowth)},
	}
}
