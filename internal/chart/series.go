// Package chart builds the price chart series: the recent historical tail
// followed by the forecast.
package chart

import (
	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/format"
)

// Window is how many trailing historical closes the chart shows.
const Window = 60

// Point is one chart entry. Exactly one of Historical and Predicted is set.
type Point struct {
	Label      string    `json:"date" yaml:"date"`
	Date       core.Date `json:"-" yaml:"-"`
	Historical *float64  `json:"historical" yaml:"historical"`
	Predicted  *float64  `json:"predicted" yaml:"predicted"`
}

// IsForecast reports whether the point comes from the prediction sequence.
func (p Point) IsForecast() bool {
	return p.Predicted != nil
}

// Value returns whichever of the two values is set.
func (p Point) Value() float64 {
	if p.Predicted != nil {
		return *p.Predicted
	}
	return *p.Historical
}

// Build concatenates the last Window historical closes with every
// prediction. The two groups are joined by position, not by date: if the
// producer sends overlapping dates the labels repeat.
func Build(historical []core.StockPrice, predictions []core.Prediction) []Point {
	tail := historical[max(len(historical)-Window, 0):]

	points := make([]Point, 0, len(tail)+len(predictions))
	for _, p := range tail {
		points = append(points, Point{
			Label:      format.DateLabel(p.Date),
			Date:       p.Date,
			Historical: core.Float(p.Close),
		})
	}
	for _, p := range predictions {
		points = append(points, Point{
			Label:     format.DateLabel(p.Date),
			Date:      p.Date,
			Predicted: core.Float(p.Price),
		})
	}
	return points
}

// Summary describes a series for axis headers.
type Summary struct {
	Points        int      `json:"points" yaml:"points"`
	Historical    int      `json:"historical" yaml:"historical"`
	Forecast      int      `json:"forecast" yaml:"forecast"`
	Low           *float64 `json:"low" yaml:"low"`
	High          *float64 `json:"high" yaml:"high"`
	LastClose     *float64 `json:"last_close" yaml:"last_close"`
	FinalForecast *float64 `json:"final_forecast" yaml:"final_forecast"`
}

// Summarize scans a series built by Build.
func Summarize(points []Point) Summary {
	s := Summary{Points: len(points)}
	for _, p := range points {
		v := p.Value()
		if s.Low == nil || v < *s.Low {
			s.Low = core.Float(v)
		}
		if s.High == nil || v > *s.High {
			s.High = core.Float(v)
		}
		if p.IsForecast() {
			s.Forecast++
			s.FinalForecast = core.Float(v)
		} else {
			s.Historical++
			s.LastClose = core.Float(v)
		}
	}
	return s
}
