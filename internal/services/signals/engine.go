package signals

import "EarnRev/internal/domain/models"

// Evaluate runs the five rules in order and aggregates them.
func Evaluate(in Input) models.SignalSet {
	var subs [5]models.SubSignal
	for i, r := range Rules {
		dir, str, why := r.Eval(in)
		subs[i] = models.SubSignal{
			Name:        r.Name,
			Direction:   dir,
			Label:       dir.String(),
			Score:       Score(dir, str),
			Explanation: why,
		}
	}
	return models.SignalSet{
		Subs:       subs[:],
		Final:      Aggregate(subs),
		RiskZScore: in.RiskZ,
	}
}
