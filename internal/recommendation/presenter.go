// Package recommendation presents the service's buy/hold/sell verdict.
package recommendation

import (
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/stocklens/internal/core"
	"github.com/newthinker/stocklens/internal/format"
)

// Direction is the arrow shown next to the action.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Tone is the color family of a badge or heading.
type Tone string

const (
	Success Tone = "success"
	Danger  Tone = "danger"
	Warning Tone = "warning"
	Muted   Tone = "neutral"
)

// Classification pairs the icon direction with its color.
type Classification struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Tone      Tone      `json:"tone" yaml:"tone"`
}

// Classify maps an action to its display classification. There is no
// fallback: an action outside buy/hold/sell is a contract violation.
func Classify(action core.Action) (Classification, error) {
	switch action {
	case core.ActionBuy:
		return Classification{Direction: Up, Tone: Success}, nil
	case core.ActionSell:
		return Classification{Direction: Down, Tone: Danger}, nil
	case core.ActionHold:
		return Classification{Direction: Flat, Tone: Warning}, nil
	}
	return Classification{}, core.WrapError(core.ErrContractViolation, fmt.Errorf("unknown action %q", action))
}

// RiskBadge returns the badge tone for a risk level. An unspecified level
// is muted; anything outside the closed set is rejected.
func RiskBadge(risk core.RiskLevel) (Tone, error) {
	switch risk {
	case core.RiskLow:
		return Success, nil
	case core.RiskMedium:
		return Warning, nil
	case core.RiskHigh:
		return Danger, nil
	case core.RiskUnspecified:
		return Muted, nil
	}
	return "", core.WrapError(core.ErrContractViolation, fmt.Errorf("unknown risk level %q", risk))
}

// Potential is the percentage move from current to target price.
type Potential struct {
	Percent   float64
	Available bool
}

// PotentialReturn is (target-current)/current*100 rounded to two decimals.
// It is unavailable without a target or with a zero current price.
func PotentialReturn(current float64, target *float64) Potential {
	if target == nil || current == 0 {
		return Potential{}
	}
	pct := (*target - current) / current * 100
	return Potential{Percent: math.Round(pct*100) / 100, Available: true}
}

func (p Potential) String() string {
	if !p.Available {
		return format.NA
	}
	return fmt.Sprintf("%.2f%%", p.Percent)
}

// Score is a 0..1 score prepared for display. Bar is clamped to [0, 100]
// for drawing; Raw is the value as received.
type Score struct {
	Text string   `json:"text" yaml:"text"`
	Bar  float64  `json:"bar" yaml:"bar"`
	Raw  *float64 `json:"raw" yaml:"raw"`
}

// Confidence shows one decimal, "82.5%".
func Confidence(v float64) Score {
	return score(&v, "%.1f%%")
}

// ScorePercent shows a whole percentage, "64%", or N/A when absent.
func ScorePercent(v *float64) Score {
	return score(v, "%.0f%%")
}

func score(v *float64, layout string) Score {
	if v == nil {
		return Score{Text: format.NA}
	}
	pct := *v * 100
	return Score{
		Text: fmt.Sprintf(layout, pct),
		Bar:  min(max(pct, 0), 100),
		Raw:  v,
	}
}

// Badge is a labelled, toned chip.
type Badge struct {
	Text string `json:"text" yaml:"text"`
	Tone Tone   `json:"tone" yaml:"tone"`
}

// View is the recommendation card.
type View struct {
	Action         string         `json:"action" yaml:"action"`
	Classification Classification `json:"classification" yaml:"classification"`
	Confidence     Score          `json:"confidence" yaml:"confidence"`
	Risk           Badge          `json:"risk" yaml:"risk"`
	Horizon        string         `json:"horizon" yaml:"horizon"`
	CurrentPrice   string         `json:"current_price" yaml:"current_price"`
	TargetPrice    string         `json:"target_price" yaml:"target_price"`
	Potential      string         `json:"potential" yaml:"potential"`
	Technical      Score          `json:"technical_score" yaml:"technical_score"`
	Fundamental    Score          `json:"fundamental_score" yaml:"fundamental_score"`
	Reasoning      string         `json:"reasoning" yaml:"reasoning"`
}

// Present builds the recommendation card. Prices are prefixed with the
// stock's currency code.
func Present(rec core.Recommendation, currency string) (View, error) {
	class, err := Classify(rec.Action)
	if err != nil {
		return View{}, err
	}
	riskTone, err := RiskBadge(rec.RiskLevel)
	if err != nil {
		return View{}, err
	}

	riskText := format.NA
	if rec.RiskLevel != core.RiskUnspecified {
		riskText = strings.ToUpper(string(rec.RiskLevel)) + " RISK"
	}
	horizon := format.NA
	if rec.TimeHorizon != core.HorizonUnspecified {
		horizon = string(rec.TimeHorizon) + " term"
	}

	return View{
		Action:         strings.ToUpper(string(rec.Action)),
		Classification: class,
		Confidence:     Confidence(rec.ConfidenceScore),
		Risk:           Badge{Text: riskText, Tone: riskTone},
		Horizon:        horizon,
		CurrentPrice:   format.Money(currency, &rec.CurrentPrice),
		TargetPrice:    format.Money(currency, rec.TargetPrice),
		Potential:      PotentialReturn(rec.CurrentPrice, rec.TargetPrice).String(),
		Technical:      ScorePercent(rec.TechnicalScore),
		Fundamental:    ScorePercent(rec.FundamentalScore),
		Reasoning:      rec.Reasoning,
	}, nil
}
