package assembler

import (
	"regexp"
	"strconv"
	"strings"

	"EarnRev/internal/domain/models"
)

const introChars = 5000

var clockRe = regexp.MustCompile(`\b(\d{1,2}):?(\d{2})?\s*(a\.?m\.?|p\.?m\.?)\b`)

// DetectCallTime infers whether a call happened before the open or after the
// close from the transcript text.
func DetectCallTime(transcript string) models.CallTime {
	if transcript == "" {
		return models.CallTimeUnknown
	}
	intro := strings.ToLower(transcript)
	if len(intro) > introChars {
		intro = intro[:introChars]
	}

	switch {
	case strings.Contains(intro, "good morning"):
		return models.CallTimeBMO
	case strings.Contains(intro, "good afternoon"), strings.Contains(intro, "good evening"):
		return models.CallTimeAMC
	}

	for _, m := range clockRe.FindAllStringSubmatch(intro, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if strings.HasPrefix(m[3], "a") {
			if hour >= 5 && hour <= 11 {
				return models.CallTimeBMO
			}
			continue
		}
		// 12 to 3 p.m. is ambiguous
		if hour >= 4 && hour != 12 {
			return models.CallTimeAMC
		}
	}

	switch {
	case strings.Contains(intro, "this morning"):
		return models.CallTimeBMO
	case strings.Contains(intro, "this afternoon"), strings.Contains(intro, "this evening"):
		return models.CallTimeAMC
	case containsAny(intro, "after the close", "after market", "after hours"):
		return models.CallTimeAMC
	case containsAny(intro, "before the open", "pre-market", "premarket"):
		return models.CallTimeBMO
	}

	full := strings.ToLower(transcript)
	morning := strings.Count(full, "good morning")
	later := strings.Count(full, "good afternoon") + strings.Count(full, "good evening")
	switch {
	case morning > later:
		return models.CallTimeBMO
	case later > morning:
		return models.CallTimeAMC
	}
	return models.CallTimeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
