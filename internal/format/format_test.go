package format

import (
	"testing"
	"time"

	"github.com/newthinker/stocklens/internal/core"
)

func f(v float64) *float64 { return core.Float(v) }

func TestNumber(t *testing.T) {
	tests := []struct {
		input *float64
		want  string
	}{
		{nil, "N/A"},
		{f(0), "0"},
		{f(25.3), "25.3"},
		{f(25.326), "25.33"},
		{f(1234.5), "1,234.5"},
		{f(1234567.891), "1,234,567.89"},
		{f(-4321.1), "-4,321.1"},
		{f(-0.001), "0"},
		{f(12.999), "13"},
	}

	for _, tc := range tests {
		if got := Number(tc.input); got != tc.want {
			t.Errorf("Number(%v) = %q, want %q", deref(tc.input), got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		input *float64
		want  string
	}{
		{nil, "N/A"},
		{f(0.1523), "15.23%"},
		{f(0.05), "5.00%"},
		{f(-0.021), "-2.10%"},
		{f(1.5), "150.00%"},
	}

	for _, tc := range tests {
		if got := Percent(tc.input); got != tc.want {
			t.Errorf("Percent(%v) = %q, want %q", deref(tc.input), got, tc.want)
		}
	}
}

func TestMarketCap(t *testing.T) {
	tests := []struct {
		input *float64
		want  string
	}{
		{nil, "N/A"},
		{f(2_500_000_000_000), "$2.50T"},
		{f(1e12), "$1.00T"},
		{f(999_000_000_000), "$999.00B"},
		{f(850_000_000), "$850.00M"},
		{f(1e9), "$1.00B"},
		{f(1e6), "$1.00M"},
		{f(999_999), "$999999"},
		{f(2.5), "$3"},
		{f(-3e9), "$-3.00B"},
	}

	for _, tc := range tests {
		if got := MarketCap(tc.input); got != tc.want {
			t.Errorf("MarketCap(%v) = %q, want %q", deref(tc.input), got, tc.want)
		}
	}
}

func TestCurrency(t *testing.T) {
	if got := Currency(150); got != "150.00" {
		t.Errorf("Currency(150) = %q", got)
	}
	if got := Currency(172.456); got != "172.46" {
		t.Errorf("Currency(172.456) = %q", got)
	}
}

func TestFixed(t *testing.T) {
	if got := Fixed(nil); got != "N/A" {
		t.Errorf("Fixed(nil) = %q", got)
	}
	if got := Fixed(f(0)); got != "0.00" {
		t.Errorf("Fixed(0) = %q, zero is a value", got)
	}
}

func TestSigned(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{1.234, "+1.23"},
		{0, "+0.00"},
		{-0.5, "-0.50"},
	}
	for _, tc := range tests {
		if got := Signed(tc.input); got != tc.want {
			t.Errorf("Signed(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if got := SignedPercent(-1.5); got != "-1.50%" {
		t.Errorf("SignedPercent(-1.5) = %q", got)
	}
}

func TestMoney(t *testing.T) {
	if got := Money("USD", f(172.5)); got != "USD 172.50" {
		t.Errorf("got %q", got)
	}
	if got := Money("IDR", nil); got != "IDR N/A" {
		t.Errorf("got %q", got)
	}
}

func TestDateLabel(t *testing.T) {
	tests := []struct {
		date core.Date
		want string
	}{
		{core.NewDate(2024, time.March, 5), "Mar 5"},
		{core.NewDate(2024, time.December, 31), "Dec 31"},
		{core.NewDate(2025, time.January, 1), "Jan 1"},
	}
	for _, tc := range tests {
		if got := DateLabel(tc.date); got != tc.want {
			t.Errorf("DateLabel(%s) = %q, want %q", tc.date, got, tc.want)
		}
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
