package signals

import (
	"fmt"

	"EarnRev/internal/domain/models"
)

// Signal names in evaluation order.
const (
	NameToneNumbers = "Tone-Numbers Divergence"
	NameQAAsymmetry = "Prepared vs. Q&A Asymmetry"
	NameRegimeShift = "Language Regime Shift"
	NameTempStruct  = "Temporary vs. Structural Story"
	NameSkepticism  = "Analyst Skepticism"
	NameFinal       = "Final Signal"
)

// Thresholds.
const (
	Day0Move       = 0.05
	Day0StrongMove = 0.10

	QADelta       = 1.0
	QAStrongDelta = 1.5

	RegimeZ       = 1.5
	RegimeStrongZ = 2.0

	TemporaryRatio       = 0.70
	TemporaryStrongRatio = 0.85

	SkepticHigh       = 0.40
	SkepticStrongHigh = 0.60
	SkepticLow        = 0.20
	SkepticStrongLow  = 0.10
)

// Strengths scale a triggered direction into a display score.
const (
	strengthNormal = 0.6
	strengthStrong = 1.0
)

// Input is everything a rule may look at for one event.
type Input struct {
	Event    models.EarningsEvent
	Features models.FeatureBundle
	// RiskZ is nil when the history could not produce a z-score.
	RiskZ        *float64
	PriorEntries int
	ZeroVariance bool
}

// Rule evaluates one sub-signal. Rules are pure.
type Rule struct {
	Name string
	Eval func(in Input) (models.Direction, float64, string)
}

// Rules is the fixed, ordered rule set.
var Rules = [5]Rule{
	{Name: NameToneNumbers, Eval: toneNumbers},
	{Name: NameQAAsymmetry, Eval: qaAsymmetry},
	{Name: NameRegimeShift, Eval: regimeShift},
	{Name: NameTempStruct, Eval: temporaryStructural},
	{Name: NameSkepticism, Eval: analystSkepticism},
}

func strength(strong bool) float64 {
	if strong {
		return strengthStrong
	}
	return strengthNormal
}

func toneNumbers(in Input) (models.Direction, float64, string) {
	numbers := in.Features.Numbers.OverallNumbersStrength
	tone := in.Features.Tone.OverallTone
	switch {
	case numbers >= 1 && tone <= -1:
		return models.Bearish, strength(numbers >= 2 || tone <= -2),
			fmt.Sprintf("strong numbers (%+d) delivered with negative tone (%+d)", numbers, tone)
	case numbers <= -1 && tone >= 1:
		return models.Bullish, strength(numbers <= -2 || tone >= 2),
			fmt.Sprintf("weak numbers (%+d) delivered with positive tone (%+d)", numbers, tone)
	}
	return models.Neutral, 0, fmt.Sprintf("tone (%+d) consistent with numbers (%+d)", tone, numbers)
}

func qaAsymmetry(in Input) (models.Direction, float64, string) {
	if in.Event.Day0Return == nil {
		return models.Neutral, 0, "day-0 return unavailable"
	}
	ret := *in.Event.Day0Return
	prepared := in.Features.Tone.PreparedTone
	qa := in.Features.Tone.QATone
	delta := float64(qa - prepared)
	switch {
	case delta <= -QADelta && ret > Day0Move:
		return models.Bearish, strength(delta <= -QAStrongDelta && ret >= Day0StrongMove),
			fmt.Sprintf("Q&A tone (%+d) weaker than prepared remarks (%+d) after a %+.1f%% rally", qa, prepared, ret*100)
	case delta >= QADelta && ret < -Day0Move:
		return models.Bullish, strength(delta >= QAStrongDelta && ret <= -Day0StrongMove),
			fmt.Sprintf("Q&A tone (%+d) stronger than prepared remarks (%+d) after a %+.1f%% drop", qa, prepared, ret*100)
	}
	return models.Neutral, 0, fmt.Sprintf("no Q&A asymmetry against the %+.1f%% reaction (prepared %+d, Q&A %+d)", ret*100, prepared, qa)
}

func regimeShift(in Input) (models.Direction, float64, string) {
	if in.RiskZ == nil {
		if in.ZeroVariance {
			return models.Neutral, 0, "risk focus history has zero variance"
		}
		return models.Neutral, 0, fmt.Sprintf("insufficient history (%d prior quarters, need 4)", in.PriorEntries)
	}
	z := *in.RiskZ
	if in.Event.Day0Return == nil {
		return models.Neutral, 0, fmt.Sprintf("risk z-score %.2f but day-0 return unavailable", z)
	}
	ret := *in.Event.Day0Return
	switch {
	case z >= RegimeZ && ret >= 0:
		return models.Bearish, strength(z >= RegimeStrongZ),
			fmt.Sprintf("risk language spiked (z=%.2f) while price held up (%+.1f%%)", z, ret*100)
	case z <= -RegimeZ && ret <= 0:
		return models.Bullish, strength(z <= -RegimeStrongZ),
			fmt.Sprintf("risk language eased (z=%.2f) while price sold off (%+.1f%%)", z, ret*100)
	}
	return models.Neutral, 0, fmt.Sprintf("no regime shift (z=%.2f)", z)
}

func temporaryStructural(in Input) (models.Direction, float64, string) {
	surprise, ok := in.Event.EPSSurprise()
	if !ok {
		return models.Neutral, 0, "missing EPS data (actual or estimate unavailable)"
	}
	pos := in.Features.Narrative.PosTemporaryRatio
	neg := in.Features.Narrative.NegTemporaryRatio
	switch {
	case surprise > 0 && pos >= TemporaryRatio:
		return models.Bearish, strength(pos >= TemporaryStrongRatio),
			fmt.Sprintf("EPS beat (%+.1f%%) attributed mostly to temporary factors (%.0f%%)", surprise*100, pos*100)
	case surprise < 0 && neg >= TemporaryRatio:
		return models.Bullish, strength(neg >= TemporaryStrongRatio),
			fmt.Sprintf("EPS miss (%+.1f%%) attributed mostly to temporary factors (%.0f%%)", surprise*100, neg*100)
	case surprise > 0:
		return models.Neutral, 0, fmt.Sprintf("EPS beat (%+.1f%%) framed as structural", surprise*100)
	case surprise < 0:
		return models.Neutral, 0, fmt.Sprintf("EPS miss (%+.1f%%) framed as structural", surprise*100)
	}
	return models.Neutral, 0, "EPS in line with estimate"
}

func analystSkepticism(in Input) (models.Direction, float64, string) {
	if in.Event.Day0Return == nil {
		return models.Neutral, 0, "day-0 return unavailable"
	}
	ret := *in.Event.Day0Return
	sk := in.Features.Skepticism.SkepticalQuestionRatio
	switch {
	case ret > Day0Move && sk >= SkepticHigh:
		return models.Bearish, strength(ret >= Day0StrongMove && sk >= SkepticStrongHigh),
			fmt.Sprintf("analysts skeptical (%.0f%% of questions) despite a %+.1f%% rally", sk*100, ret*100)
	case ret < -Day0Move && sk <= SkepticLow:
		return models.Bullish, strength(ret <= -Day0StrongMove && sk <= SkepticStrongLow),
			fmt.Sprintf("analysts unconcerned (%.0f%% skeptical) despite a %+.1f%% drop", sk*100, ret*100)
	}
	return models.Neutral, 0, fmt.Sprintf("analyst skepticism (%.0f%%) consistent with the %+.1f%% reaction", sk*100, ret*100)
}
