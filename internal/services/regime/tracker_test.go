package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 3*i, 0)
}

func TestZScoreHandComputed(t *testing.T) {
	tr := NewTracker()
	for i, s := range []float64{40, 50, 60, 45} {
		assert.Nil(t, tr.Observe(day(i), s), "entry %d must not be scored", i)
	}
	z := tr.Observe(day(4), 80)
	require.NotNil(t, z)
	// mean 48.75, sample sd 8.5391
	assert.InDelta(t, 3.6597, *z, 1e-4)
	assert.Equal(t, 5, tr.Len())
}

func TestZScoreInsufficientHistory(t *testing.T) {
	tr := NewTracker()
	for i, s := range []float64{10, 90, 30} {
		assert.Nil(t, tr.Observe(day(i), s))
	}
	assert.Nil(t, tr.ZScore(100))
	assert.False(t, tr.ZeroVariance())
}

func TestZScoreZeroVariance(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 4; i++ {
		tr.Observe(day(i), 50)
	}
	assert.Nil(t, tr.ZScore(90))
	assert.True(t, tr.ZeroVariance())
}

func TestObserveUsesOnlyPriorEntries(t *testing.T) {
	a := NewTracker()
	b := NewTracker()
	for i, s := range []float64{40, 50, 60, 45} {
		a.Observe(day(i), s)
		b.Observe(day(i), s)
	}
	za := a.ZScore(80)
	zb := b.Observe(day(4), 80)
	require.NotNil(t, za)
	require.NotNil(t, zb)
	assert.Equal(t, *za, *zb)

	entries := b.Entries()
	assert.Len(t, entries, 5)
	assert.Equal(t, 80.0, entries[4].Score)
}
