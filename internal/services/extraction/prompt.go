package extraction

import (
	"fmt"
	"strings"

	"EarnRev/internal/domain/service"
)

const truncationMarker = "\n\n[... TRANSCRIPT TRUNCATED FOR LENGTH ...]\n\n"

// Portions of an oversized transcript that survive truncation.
const (
	keepHead = 0.75
	keepTail = 0.15
)

const systemPrompt = `You analyze earnings call transcripts for an equity research desk.

Input: the company symbol and call date, reported and estimated EPS and revenue,
the day-0 stock reaction, and the call transcript (prepared remarks and Q&A).

Respond with one JSON object and nothing else:

{
  "numbers": {"eps_strength": int, "revenue_strength": int, "overall_numbers_strength": int},
  "tone": {"overall_tone": int, "prepared_tone": int, "qa_tone": int},
  "narrative": {
    "neg_temporary_ratio": float,
    "pos_temporary_ratio": float,
    "key_temporary_factors": [string],
    "key_structural_factors": [string]
  },
  "skepticism": {"skeptical_question_ratio": float, "followup_ratio": float, "topic_concentration": float},
  "risk_focus_score": int,
  "one_sentence_summary": string
}

Scales:
- numbers.*: -2 large miss, -1 small miss, 0 in line, +1 small beat, +2 large beat.
  overall_numbers_strength also weighs guidance.
- tone.*: -2 defensive, -1 cautious, 0 neutral, +1 confident, +2 very optimistic.
  prepared_tone covers prepared remarks only; qa_tone covers management answers in Q&A.
- narrative ratios (0-1): share of negative (neg_) or positive (pos_) drivers that management
  presents as temporary or one-off. List 2-4 factors of each kind.
- skepticism ratios (0-1): share of analyst questions that challenge management; share of
  analysts who followed up on an unsatisfying answer; how concentrated questions are on one
  risk topic (0 diverse, 1 a single topic).
- risk_focus_score (0-100): intensity of risk and uncertainty language versus a typical call.
  0-20 very low, 21-40 normal, 41-60 elevated, 61-80 high, 81-100 crisis level.

Judge the transcript content, not the stock reaction. Watch hedging, evasive answers and
topics management avoids.`

// buildUserMessage renders the request for one event.
func buildUserMessage(in service.ExtractionInput) string {
	var b strings.Builder
	b.WriteString("EARNINGS CALL\n\n")
	fmt.Fprintf(&b, "Symbol: %s\nDate: %s\nQuarter: %s\n\n", in.Ticker, in.Date, in.Quarter)
	b.WriteString("Headline numbers:\n")
	fmt.Fprintf(&b, "- EPS actual: %s\n", fmtNumber(in.EPSActual, "%.4f"))
	fmt.Fprintf(&b, "- EPS estimate: %s\n", fmtNumber(in.EPSEstimate, "%.4f"))
	fmt.Fprintf(&b, "- Revenue actual: %s\n", fmtNumber(in.RevenueActual, "$%.0f"))
	fmt.Fprintf(&b, "- Revenue estimate: %s\n\n", fmtNumber(in.RevenueEstimate, "$%.0f"))
	if in.Day0Return != nil {
		fmt.Fprintf(&b, "Day-0 reaction: %+.2f%%\n\n", *in.Day0Return*100)
	} else {
		b.WriteString("Day-0 reaction: N/A\n\n")
	}
	b.WriteString("--- TRANSCRIPT ---\n\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\n--- END TRANSCRIPT ---\n")
	return b.String()
}

// buildPrompt renders the user message, shortening the transcript when the
// message exceeds maxChars. The head and tail are kept so Q&A survives.
func buildPrompt(in service.ExtractionInput, maxChars int) (string, bool) {
	msg := buildUserMessage(in)
	if maxChars <= 0 || len(msg) <= maxChars {
		return msg, false
	}
	in.Transcript = truncateTranscript(in.Transcript)
	return buildUserMessage(in), true
}

func truncateTranscript(t string) string {
	head := int(float64(len(t)) * keepHead)
	tail := int(float64(len(t)) * keepTail)
	// byte cuts may split a rune
	return strings.ToValidUTF8(t[:head], "") + truncationMarker + strings.ToValidUTF8(t[len(t)-tail:], "")
}

func fmtNumber(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
