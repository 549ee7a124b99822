package models

// Scale values live in {-2,-1,0,1,2}.
const (
	ScaleMin = -2
	ScaleMax = 2

	RiskScoreMin     = 0
	RiskScoreMax     = 100
	RiskScoreNeutral = 50
)

// NumbersAssessment grades how strong the reported numbers were.
type NumbersAssessment struct {
	EPSStrength            int `json:"eps_strength"`
	RevenueStrength        int `json:"revenue_strength"`
	OverallNumbersStrength int `json:"overall_numbers_strength"`
}

// ToneAssessment grades management tone in each section of the call.
type ToneAssessment struct {
	OverallTone  int `json:"overall_tone"`
	PreparedTone int `json:"prepared_tone"`
	QATone       int `json:"qa_tone"`
}

// NarrativeAssessment measures how much of a beat or miss is framed as temporary.
type NarrativeAssessment struct {
	NegTemporaryRatio    float64  `json:"neg_temporary_ratio"`
	PosTemporaryRatio    float64  `json:"pos_temporary_ratio"`
	KeyTemporaryFactors  []string `json:"key_temporary_factors,omitempty"`
	KeyStructuralFactors []string `json:"key_structural_factors,omitempty"`
}

// SkepticismAssessment describes analyst behavior during Q&A.
type SkepticismAssessment struct {
	SkepticalQuestionRatio float64 `json:"skeptical_question_ratio"`
	FollowupRatio          float64 `json:"followup_ratio"`
	TopicConcentration     float64 `json:"topic_concentration"`
}

// FeatureBundle is the qualitative read of one transcript.
type FeatureBundle struct {
	Summary        string               `json:"one_sentence_summary"`
	Numbers        NumbersAssessment    `json:"numbers"`
	Tone           ToneAssessment       `json:"tone"`
	RiskFocusScore int                  `json:"risk_focus_score"`
	Narrative      NarrativeAssessment  `json:"narrative"`
	Skepticism     SkepticismAssessment `json:"skepticism"`
}

// NeutralFeatureBundle is substituted whenever a transcript is missing or
// extraction fails. Counting uses EventStatus.ExtractionSuccess, never this value.
func NeutralFeatureBundle() FeatureBundle {
	return FeatureBundle{RiskFocusScore: RiskScoreNeutral}
}

// Normalize clamps every scale, score and ratio into its allowed range.
func (b FeatureBundle) Normalize() FeatureBundle {
	b.Numbers.EPSStrength = clampInt(b.Numbers.EPSStrength, ScaleMin, ScaleMax)
	b.Numbers.RevenueStrength = clampInt(b.Numbers.RevenueStrength, ScaleMin, ScaleMax)
	b.Numbers.OverallNumbersStrength = clampInt(b.Numbers.OverallNumbersStrength, ScaleMin, ScaleMax)
	b.Tone.OverallTone = clampInt(b.Tone.OverallTone, ScaleMin, ScaleMax)
	b.Tone.PreparedTone = clampInt(b.Tone.PreparedTone, ScaleMin, ScaleMax)
	b.Tone.QATone = clampInt(b.Tone.QATone, ScaleMin, ScaleMax)
	b.RiskFocusScore = clampInt(b.RiskFocusScore, RiskScoreMin, RiskScoreMax)
	b.Narrative.NegTemporaryRatio = ClampUnit(b.Narrative.NegTemporaryRatio)
	b.Narrative.PosTemporaryRatio = ClampUnit(b.Narrative.PosTemporaryRatio)
	b.Skepticism.SkepticalQuestionRatio = ClampUnit(b.Skepticism.SkepticalQuestionRatio)
	b.Skepticism.FollowupRatio = ClampUnit(b.Skepticism.FollowupRatio)
	b.Skepticism.TopicConcentration = ClampUnit(b.Skepticism.TopicConcentration)
	return b
}

// ClampUnit clamps v to [0,1]; NaN becomes 0.
func ClampUnit(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
