package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Action is the recommended trade direction. Closed set.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// ParseAction returns the Action for s or ErrContractViolation.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionBuy, ActionHold, ActionSell:
		return a, nil
	}
	return "", WrapError(ErrContractViolation, fmt.Errorf("unknown action %q", s))
}

// UnmarshalJSON rejects actions outside the closed set. A JSON null leaves
// the action empty; StockAnalysis.Validate catches that.
func (a *Action) UnmarshalJSON(b []byte) error {
	s, null, err := decodeEnum(b)
	if err != nil || null {
		return err
	}
	v, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// RiskLevel grades the recommendation's risk. The empty value means the
// producer did not supply one.
type RiskLevel string

const (
	RiskUnspecified RiskLevel = ""
	RiskLow         RiskLevel = "low"
	RiskMedium      RiskLevel = "medium"
	RiskHigh        RiskLevel = "high"
)

// ParseRiskLevel accepts the closed set plus the empty string.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch r := RiskLevel(s); r {
	case RiskUnspecified, RiskLow, RiskMedium, RiskHigh:
		return r, nil
	}
	return "", WrapError(ErrContractViolation, fmt.Errorf("unknown risk level %q", s))
}

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	s, null, err := decodeEnum(b)
	if err != nil || null {
		return err
	}
	v, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// TimeHorizon is the holding period the recommendation targets.
type TimeHorizon string

const (
	HorizonUnspecified TimeHorizon = ""
	HorizonShort       TimeHorizon = "short"
	HorizonMedium      TimeHorizon = "medium"
	HorizonLong        TimeHorizon = "long"
)

// ParseTimeHorizon accepts the closed set plus the empty string.
func ParseTimeHorizon(s string) (TimeHorizon, error) {
	switch h := TimeHorizon(s); h {
	case HorizonUnspecified, HorizonShort, HorizonMedium, HorizonLong:
		return h, nil
	}
	return "", WrapError(ErrContractViolation, fmt.Errorf("unknown time horizon %q", s))
}

func (h *TimeHorizon) UnmarshalJSON(b []byte) error {
	s, null, err := decodeEnum(b)
	if err != nil || null {
		return err
	}
	v, err := ParseTimeHorizon(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ModelType selects the forecasting model on the service side.
type ModelType string

const (
	ModelLSTM    ModelType = "lstm"
	ModelXGBoost ModelType = "xgboost"
)

// ParseModelType returns the ModelType for s or ErrValidation.
func ParseModelType(s string) (ModelType, error) {
	switch m := ModelType(s); m {
	case ModelLSTM, ModelXGBoost:
		return m, nil
	}
	return "", WrapError(ErrValidation, fmt.Errorf("model must be one of lstm, xgboost, got %q", s))
}

func decodeEnum(b []byte) (s string, null bool, err error) {
	if string(b) == "null" {
		return "", true, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false, WrapError(ErrContractViolation, err)
	}
	return s, false, nil
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date. It carries no zone: the date written by the
// producer is the date displayed.
type Date struct {
	time.Time
}

// NewDate returns the calendar date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseDate reads YYYY-MM-DD or a timestamp. Timestamps keep the calendar
// date as written, whatever their offset.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalYAML renders the date in wire format.
func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Float returns a pointer to v, for populating optional fields.
func Float(v float64) *float64 {
	return &v
}

// Stock identifies the analysed security.
type Stock struct {
	ID       string `json:"id,omitempty"`
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// StockPrice is one daily bar. Sequences are ascending by date.
type StockPrice struct {
	Date   Date    `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// TechnicalIndicator holds one day of indicator values. Any value is nil
// when the producer lacked the history to compute it. Sequences are
// descending by date: index 0 is the latest.
type TechnicalIndicator struct {
	Date          Date     `json:"date"`
	RSI14         *float64 `json:"rsi_14"`
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macd_signal"`
	MACDHistogram *float64 `json:"macd_histogram"`
	SMA20         *float64 `json:"sma_20"`
	SMA50         *float64 `json:"sma_50"`
	SMA200        *float64 `json:"sma_200"`
	EMA12         *float64 `json:"ema_12,omitempty"`
	EMA26         *float64 `json:"ema_26,omitempty"`

	// Malformed names the fields dropped at decode because their value was
	// not a finite number.
	Malformed []string `json:"-" yaml:"-"`
}

// UnmarshalJSON decodes the date strictly and the readings leniently: a
// reading that is not a finite number is treated as absent.
func (t *TechnicalIndicator) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	*t = TechnicalIndicator{}
	if d, ok := raw["date"]; ok {
		if err := json.Unmarshal(d, &t.Date); err != nil {
			return err
		}
	}
	t.Malformed = decodeOptionals(raw, map[string]**float64{
		"rsi_14":         &t.RSI14,
		"macd":           &t.MACD,
		"macd_signal":    &t.MACDSignal,
		"macd_histogram": &t.MACDHistogram,
		"sma_20":         &t.SMA20,
		"sma_50":         &t.SMA50,
		"sma_200":        &t.SMA200,
		"ema_12":         &t.EMA12,
		"ema_26":         &t.EMA26,
	})
	return nil
}

// Prediction is one forecast point. Sequences are ascending by date.
type Prediction struct {
	Date  Date    `json:"date"`
	Price float64 `json:"price"`
}

// Recommendation is the service's verdict for the stock.
type Recommendation struct {
	Action           Action      `json:"action"`
	ConfidenceScore  float64     `json:"confidence_score"`
	TargetPrice      *float64    `json:"target_price"`
	CurrentPrice     float64     `json:"current_price"`
	TechnicalScore   *float64    `json:"technical_score"`
	FundamentalScore *float64    `json:"fundamental_score"`
	Reasoning        string      `json:"reasoning"`
	RiskLevel        RiskLevel   `json:"risk_level"`
	TimeHorizon      TimeHorizon `json:"time_horizon"`
}

// FinancialSummary is a bag of optional ratios. The camelCase names are
// part of the wire contract.
type FinancialSummary struct {
	MarketCap      *float64 `json:"marketCap"`
	TrailingPE     *float64 `json:"trailingPE"`
	ForwardPE      *float64 `json:"forwardPE"`
	PriceToBook    *float64 `json:"priceToBook"`
	DebtToEquity   *float64 `json:"debtToEquity"`
	ReturnOnEquity *float64 `json:"returnOnEquity"`
	RevenueGrowth  *float64 `json:"revenueGrowth"`
	EarningsGrowth *float64 `json:"earningsGrowth,omitempty"`

	// Malformed names the ratios dropped at decode, e.g. "Infinity" sent
	// as a string.
	Malformed []string `json:"-" yaml:"-"`
}

// UnmarshalJSON treats any ratio that is not a finite number as absent.
func (s *FinancialSummary) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	*s = FinancialSummary{}
	s.Malformed = decodeOptionals(raw, map[string]**float64{
		"marketCap":      &s.MarketCap,
		"trailingPE":     &s.TrailingPE,
		"forwardPE":      &s.ForwardPE,
		"priceToBook":    &s.PriceToBook,
		"debtToEquity":   &s.DebtToEquity,
		"returnOnEquity": &s.ReturnOnEquity,
		"revenueGrowth":  &s.RevenueGrowth,
		"earningsGrowth": &s.EarningsGrowth,
	})
	return nil
}

// decodeOptionals fills each destination from raw. Null and missing keys
// stay nil; values that are not finite numbers stay nil and are returned
// by key, sorted.
func decodeOptionals(raw map[string]json.RawMessage, dst map[string]**float64) []string {
	var malformed []string
	for key, p := range dst {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			malformed = append(malformed, key)
			continue
		}
		*p = &f
	}
	sort.Strings(malformed)
	return malformed
}

// StockAnalysis is the full bundle returned for one query. It is treated
// as immutable once decoded.
type StockAnalysis struct {
	Stock               Stock                `json:"stock"`
	LatestPrice         float64              `json:"latest_price"`
	PriceChange         float64              `json:"price_change"`
	PriceChangePercent  float64              `json:"price_change_percent"`
	HistoricalPrices    []StockPrice         `json:"historical_prices"`
	TechnicalIndicators []TechnicalIndicator `json:"technical_indicators"`
	Predictions         []Prediction         `json:"predictions"`
	Recommendation      Recommendation       `json:"recommendation"`
	FinancialSummary    FinancialSummary     `json:"financial_summary"`
}

// MalformedFields lists every optional value dropped at decode, as
// "financial_summary.trailingPE" or "technical_indicators[0].rsi_14".
func (a *StockAnalysis) MalformedFields() []string {
	var out []string
	for _, k := range a.FinancialSummary.Malformed {
		out = append(out, "financial_summary."+k)
	}
	for i, row := range a.TechnicalIndicators {
		for _, k := range row.Malformed {
			out = append(out, fmt.Sprintf("technical_indicators[%d].%s", i, k))
		}
	}
	return out
}

// Validate checks the closed enumerations, including values set in code
// rather than decoded.
func (a *StockAnalysis) Validate() error {
	if _, err := ParseAction(string(a.Recommendation.Action)); err != nil {
		return err
	}
	if _, err := ParseRiskLevel(string(a.Recommendation.RiskLevel)); err != nil {
		return err
	}
	if _, err := ParseTimeHorizon(string(a.Recommendation.TimeHorizon)); err != nil {
		return err
	}
	return nil
}
