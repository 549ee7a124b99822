package signals

import (
	"fmt"
	"strings"

	"EarnRev/internal/domain/models"
)

// AggregateThreshold is the net vote needed for a directional final call.
const AggregateThreshold = 2

// FinalDirection maps the sum of five directions to the final call.
// Only a net vote of two or more is directional; a simple majority is not enough.
func FinalDirection(dirs [5]models.Direction) models.Direction {
	sum := 0
	for _, d := range dirs {
		sum += int(d)
	}
	switch {
	case sum >= AggregateThreshold:
		return models.Bullish
	case sum <= -AggregateThreshold:
		return models.Bearish
	default:
		return models.Neutral
	}
}

// Score maps a direction and strength in [0,1] to the 0..10 display scale.
func Score(dir models.Direction, strength float64) float64 {
	if dir == models.Neutral {
		return models.ScoreNeutral
	}
	return clampScore(models.ScoreNeutral + float64(dir)*strength*5)
}

// Aggregate builds the final signal from the five sub-signals.
func Aggregate(subs [5]models.SubSignal) models.SubSignal {
	var dirs [5]models.Direction
	sum := 0
	net := 0.0
	var bulls, bears []string
	for i, s := range subs {
		dirs[i] = s.Direction
		sum += int(s.Direction)
		net += s.Score - models.ScoreNeutral
		switch s.Direction {
		case models.Bullish:
			bulls = append(bulls, s.Name)
		case models.Bearish:
			bears = append(bears, s.Name)
		}
	}
	dir := FinalDirection(dirs)

	score := models.ScoreNeutral
	if dir != models.Neutral {
		// each sub-signal contributes +/- strength; |sum|>=2 keeps this outside the neutral band
		score = clampScore(models.ScoreNeutral + net/5)
	}

	return models.SubSignal{
		Name:        NameFinal,
		Direction:   dir,
		Label:       dir.String(),
		Score:       score,
		Explanation: fmt.Sprintf("net vote %+d (bullish: %s; bearish: %s)", sum, listOrNone(bulls), listOrNone(bears)),
	}
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func clampScore(v float64) float64 {
	if v < models.ScoreMin {
		return models.ScoreMin
	}
	if v > models.ScoreMax {
		return models.ScoreMax
	}
	return v
}
