package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" aapl ", "AAPL", false},
		{"brk.b", "BRK.B", false},
		{"", "", true},
		{"AAPL1", "", true},
		{"A..B", "", true},
		{"TOOLONGTICKER", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeTicker(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			assert.True(t, errors.Is(err, ErrInvalidTicker))
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestFeatureBundleNormalize(t *testing.T) {
	b := FeatureBundle{
		Numbers:        NumbersAssessment{EPSStrength: 5, RevenueStrength: -7, OverallNumbersStrength: 1},
		Tone:           ToneAssessment{OverallTone: -3, PreparedTone: 2, QATone: -2},
		RiskFocusScore: 140,
		Narrative:      NarrativeAssessment{NegTemporaryRatio: 1.4, PosTemporaryRatio: -0.2},
		Skepticism:     SkepticismAssessment{SkepticalQuestionRatio: math.NaN(), FollowupRatio: 0.3, TopicConcentration: 2},
	}.Normalize()

	assert.Equal(t, 2, b.Numbers.EPSStrength)
	assert.Equal(t, -2, b.Numbers.RevenueStrength)
	assert.Equal(t, 1, b.Numbers.OverallNumbersStrength)
	assert.Equal(t, -2, b.Tone.OverallTone)
	assert.Equal(t, 100, b.RiskFocusScore)
	assert.Equal(t, 1.0, b.Narrative.NegTemporaryRatio)
	assert.Equal(t, 0.0, b.Narrative.PosTemporaryRatio)
	assert.Equal(t, 0.0, b.Skepticism.SkepticalQuestionRatio)
	assert.Equal(t, 0.3, b.Skepticism.FollowupRatio)
	assert.Equal(t, 1.0, b.Skepticism.TopicConcentration)
}

func TestNeutralFeatureBundle(t *testing.T) {
	b := NeutralFeatureBundle()
	assert.Equal(t, 50, b.RiskFocusScore)
	assert.Zero(t, b.Tone.OverallTone)
	assert.Zero(t, b.Numbers.OverallNumbersStrength)
	assert.Zero(t, b.Narrative.PosTemporaryRatio)
	assert.Zero(t, b.Skepticism.SkepticalQuestionRatio)
	assert.Equal(t, b, b.Normalize())
}

func TestEPSSurprise(t *testing.T) {
	e := EarningsEvent{EPSActual: Float(1.0), EPSEstimate: Float(0.9)}
	s, ok := e.EPSSurprise()
	require.True(t, ok)
	assert.InDelta(t, 0.1111, s, 1e-4)

	e = EarningsEvent{EPSActual: Float(-0.5), EPSEstimate: Float(-0.4)}
	s, ok = e.EPSSurprise()
	require.True(t, ok)
	assert.Less(t, s, 0.0)

	_, ok = EarningsEvent{EPSEstimate: Float(1)}.EPSSurprise()
	assert.False(t, ok)
}

func TestSubSignalValidate(t *testing.T) {
	assert.NoError(t, SubSignal{Direction: Bullish, Score: 8}.Validate())
	assert.NoError(t, SubSignal{Direction: Neutral, Score: 5}.Validate())
	assert.Error(t, SubSignal{Direction: Bullish, Score: 5.2}.Validate())
	assert.Error(t, SubSignal{Direction: Bearish, Score: 4.6}.Validate())
	assert.Error(t, SubSignal{Direction: Neutral, Score: 6}.Validate())
	assert.Error(t, SubSignal{Direction: 2, Score: 10}.Validate())
}
