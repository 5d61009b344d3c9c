// Package format renders numbers for display. Output never depends on the
// process locale.
package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/stocklens/internal/core"
)

// NA is shown wherever a value is absent.
const NA = "N/A"

// Number groups thousands and keeps at most two fractional digits, without
// padding: 1234.5 -> "1,234.5".
func Number(v *float64) string {
	if v == nil {
		return NA
	}
	return humanize.Commaf(round2(*v))
}

// Percent renders a fraction as a percentage: 0.05 -> "5.00%".
func Percent(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// MarketCap abbreviates to T/B/M with two decimals, or a whole dollar
// amount below a million. Tiers are picked on magnitude.
func MarketCap(v *float64) string {
	if v == nil {
		return NA
	}
	x := *v
	abs := math.Abs(x)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", x/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", x/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", x/1e6)
	default:
		return fmt.Sprintf("$%.0f", math.Round(x))
	}
}

// Currency formats a price with two fixed decimals.
func Currency(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Fixed is Currency with an N/A branch.
func Fixed(v *float64) string {
	if v == nil {
		return NA
	}
	return Currency(*v)
}

// Signed prefixes non-negative values with "+".
func Signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// SignedPercent formats a value that is already a percentage.
func SignedPercent(v float64) string {
	return Signed(v) + "%"
}

// Money joins a currency code and a two-decimal amount: "USD 150.00".
func Money(currency string, v *float64) string {
	return currency + " " + Fixed(v)
}

// DateLabel is the short chart label, "Mar 5".
func DateLabel(d core.Date) string {
	return d.Format("Jan 2")
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
