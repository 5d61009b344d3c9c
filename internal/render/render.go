// Package render writes a view model to a terminal or a machine-readable
// stream.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newthinker/stocklens/internal/chart"
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/format"
	"github.com/newthinker/stocklens/internal/recommendation"
	"github.com/newthinker/stocklens/internal/signal"
	"github.com/newthinker/stocklens/internal/view"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Disclaimer closes every text report.
const Disclaimer = "Disclaimer: AI-generated predictions and recommendations for educational and " +
	"informational purposes only. This is not financial advice. Past performance does not " +
	"guarantee future results."

// barWidth is the widest chart bar in characters.
const barWidth = 40

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown output format %q", s))
}

// Write encodes m to w in the given format.
func Write(w io.Writer, f Format, m *view.Model) error {
	switch f {
	case FormatJSON:
		return JSON(w, m)
	case FormatYAML:
		return YAML(w, m)
	case FormatText, "":
		return Text(w, m)
	}
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown output format %q", f))
}

// JSON writes m as indented JSON.
func JSON(w io.Writer, m *view.Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// YAML writes m as a YAML document.
func YAML(w io.Writer, m *view.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// Text writes the human-readable report.
func Text(w io.Writer, m *view.Model) error {
	var sb strings.Builder

	writeHeader(&sb, m.Header)
	writeRecommendation(&sb, m.Recommendation)
	writeChart(&sb, m.Chart, m.ChartSummary)
	writeIndicators(&sb, m.Indicators)
	writeFinancials(&sb, m.Financials)
	sb.WriteString(Disclaimer)
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Error writes a failed query's message.
func Error(w io.Writer, msg string) error {
	_, err := fmt.Fprintf(w, "Error: %s\n", msg)
	return err
}

func writeHeader(sb *strings.Builder, h view.Header) {
	sb.WriteString(fmt.Sprintf("%s  %s\n", h.Ticker, h.Name))
	var meta []string
	for _, s := range []string{h.Exchange, h.Sector, h.Country} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	if len(meta) > 0 {
		sb.WriteString(strings.Join(meta, " | "))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%s  %s %s\n\n", h.Price, arrow(h.Direction), h.Change))
}

func writeRecommendation(sb *strings.Builder, r recommendation.View) {
	sb.WriteString("== Recommendation ==\n")
	sb.WriteString(fmt.Sprintf("%s %s  [%s]\n", arrow(r.Classification.Direction), r.Action, r.Risk.Text))
	sb.WriteString(fmt.Sprintf("  %-18s %s %s\n", "Confidence", bar(r.Confidence.Bar, 20), r.Confidence.Text))
	sb.WriteString(fmt.Sprintf("  %-18s %s\n", "Time Horizon", r.Horizon))
	sb.WriteString(fmt.Sprintf("  %-18s %s\n", "Current Price", r.CurrentPrice))
	sb.WriteString(fmt.Sprintf("  %-18s %s\n", "Target Price", r.TargetPrice))
	sb.WriteString(fmt.Sprintf("  %-18s %s\n", "Potential Return", r.Potential))
	sb.WriteString(fmt.Sprintf("  %-18s %s %s\n", "Technical Score", bar(r.Technical.Bar, 20), r.Technical.Text))
	sb.WriteString(fmt.Sprintf("  %-18s %s %s\n", "Fundamental Score", bar(r.Fundamental.Bar, 20), r.Fundamental.Text))
	if r.Reasoning != "" {
		sb.WriteString("\n  ")
		sb.WriteString(r.Reasoning)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeChart(sb *strings.Builder, points []chart.Point, s chart.Summary) {
	sb.WriteString("== Price History & Forecast ==\n")
	if len(points) == 0 {
		sb.WriteString("  No price data\n\n")
		return
	}
	sb.WriteString(fmt.Sprintf("  %d historical, %d forecast  range %s - %s\n",
		s.Historical, s.Forecast, format.Currency(*s.Low), format.Currency(*s.High)))

	span := *s.High - *s.Low
	for _, p := range points {
		v := p.Value()
		width := barWidth
		if span > 0 {
			width = 1 + int((v-*s.Low)/span*float64(barWidth-1))
		}
		mark, tag := "#", ""
		if p.IsForecast() {
			mark, tag = "*", " (forecast)"
		}
		sb.WriteString(fmt.Sprintf("  %-6s %10s %s%s\n", p.Label, format.Currency(v), strings.Repeat(mark, width), tag))
	}
	sb.WriteString("\n")
}

func writeIndicators(sb *strings.Builder, ind *view.Indicators) {
	sb.WriteString("== Technical Indicators ==\n")
	if ind == nil {
		sb.WriteString("  No technical indicator data available\n\n")
		return
	}
	sb.WriteString(fmt.Sprintf("  as of %s\n", ind.Date))
	writeReading(sb, ind.RSI)
	sb.WriteString(fmt.Sprintf("  %-10s %s\n", "", bar(ind.RSIGauge, 20)))
	writeReading(sb, ind.MACD)
	sb.WriteString(fmt.Sprintf("  %-10s %10s\n", "Signal", ind.MACDSignal))
	sb.WriteString(fmt.Sprintf("  %-10s %10s\n", "Histogram", ind.MACDHistogram))
	for _, r := range ind.MovingAverages {
		writeReading(sb, r)
	}
	sb.WriteString(fmt.Sprintf("  %-10s %10s\n", "EMA 12", ind.EMA12))
	sb.WriteString(fmt.Sprintf("  %-10s %10s\n", "EMA 26", ind.EMA26))
	sb.WriteString("\n")
}

func writeReading(sb *strings.Builder, r view.Reading) {
	sb.WriteString(fmt.Sprintf("  %-10s %10s  %s%s\n", r.Name, r.Value, r.Signal.Label, severityMark(r.Signal.Severity)))
}

func writeFinancials(sb *strings.Builder, metrics []view.Metric) {
	sb.WriteString("== Financial Metrics ==\n")
	for _, m := range metrics {
		sb.WriteString(fmt.Sprintf("  %-18s %s\n", m.Label, m.Value))
	}
	sb.WriteString("\n")
}

func arrow(d recommendation.Direction) string {
	switch d {
	case recommendation.Up:
		return "▲"
	case recommendation.Down:
		return "▼"
	default:
		return "■"
	}
}

func severityMark(s signal.Severity) string {
	switch s {
	case signal.Favorable:
		return " (+)"
	case signal.Unfavorable:
		return " (-)"
	case signal.Caution:
		return " (~)"
	default:
		return ""
	}
}

// bar draws pct (0..100) as a fixed-width gauge.
func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
