// Package signal classifies technical indicator readings into display
// signals. Every classifier treats an absent reading as N/A before any
// comparison.
package signal

// Severity tells the display layer how to color a signal.
type Severity string

const (
	Neutral     Severity = "neutral"
	Favorable   Severity = "favorable"
	Unfavorable Severity = "unfavorable"
	Caution     Severity = "caution"
)

// RSI thresholds. Both bounds classify as Neutral.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// Signal is a classified indicator reading.
type Signal struct {
	Label    string   `json:"label" yaml:"label"`
	Severity Severity `json:"severity" yaml:"severity"`
}

var notAvailable = Signal{Label: "N/A", Severity: Neutral}

// RSI classifies a 14-period RSI reading.
func RSI(rsi *float64) Signal {
	switch {
	case rsi == nil:
		return notAvailable
	case *rsi < RSIOversold:
		return Signal{Label: "Oversold", Severity: Favorable}
	case *rsi > RSIOverbought:
		return Signal{Label: "Overbought", Severity: Unfavorable}
	default:
		return Signal{Label: "Neutral", Severity: Caution}
	}
}

// MACD compares the MACD line with its signal line. Equality is Bearish.
func MACD(macd, signal *float64) Signal {
	if macd == nil || signal == nil {
		return notAvailable
	}
	if *macd > *signal {
		return Signal{Label: "Bullish", Severity: Favorable}
	}
	return Signal{Label: "Bearish", Severity: Unfavorable}
}

// MovingAverage reports whether price trades above the average.
func MovingAverage(ma *float64, price float64) Signal {
	if ma == nil {
		return notAvailable
	}
	if price > *ma {
		return Signal{Label: "Above", Severity: Favorable}
	}
	return Signal{Label: "Below", Severity: Unfavorable}
}

// Gauge is the RSI bar fill in [0, 100]. It clamps the bar only; the
// reading itself is shown as received.
func Gauge(rsi *float64) float64 {
	if rsi == nil {
		return 0
	}
	return min(max(*rsi, 0), 100)
}
