// Package query normalizes user input into an analysis request.
package query

import (
	"fmt"
	"strings"

	"github.com/newthinker/stocklens/internal/core"
)

// Horizons are the forecast lengths the service accepts, in trading days.
var Horizons = []int{7, 14, 30}

// Input is the raw selection as typed by the user.
type Input struct {
	Ticker string
	Days   int
	Model  string
}

// Query is a validated request. Its JSON form is the request body of the
// analysis service.
type Query struct {
	Ticker         string         `json:"ticker"`
	PredictionDays int            `json:"prediction_days"`
	ModelType      core.ModelType `json:"model_type"`
}

// Validate trims and upper-cases the ticker and checks the horizon and
// model against their fixed sets. Nothing is defaulted: any failure is an
// ErrValidation and nothing should be sent.
func Validate(in Input) (Query, error) {
	ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
	if ticker == "" {
		return Query{}, core.WrapError(core.ErrValidation, fmt.Errorf("ticker is required"))
	}

	if !validHorizon(in.Days) {
		return Query{}, core.WrapError(core.ErrValidation,
			fmt.Errorf("days must be one of 7, 14, 30, got %d", in.Days))
	}

	model, err := core.ParseModelType(strings.ToLower(strings.TrimSpace(in.Model)))
	if err != nil {
		return Query{}, err
	}

	return Query{Ticker: ticker, PredictionDays: in.Days, ModelType: model}, nil
}

func validHorizon(days int) bool {
	for _, h := range Horizons {
		if days == h {
			return true
		}
	}
	return false
}
