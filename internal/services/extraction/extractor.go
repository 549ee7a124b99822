package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/service"
	"EarnRev/internal/service/metrics"
	"EarnRev/pkg/logger"
)

// Completer sends one system+user exchange to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extractor implements service.FeatureExtractor on top of a Completer.
// Calls are bounded by a concurrency semaphore and a request-rate limiter.
type Extractor struct {
	completer Completer
	sem       chan struct{}
	limiter   *rate.Limiter
	attempts  int
	backoff   time.Duration
	maxChars  int
	log       *logger.Logger
}

type Option func(*Extractor)

// WithConcurrency caps in-flight model calls.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.sem = make(chan struct{}, n)
		}
	}
}

// WithRateLimit caps model calls per second; rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Extractor) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(e *Extractor) {
		e.attempts = attempts
		e.backoff = backoff
	}
}

// WithMaxChars sets the prompt budget beyond which the transcript is truncated.
func WithMaxChars(n int) Option {
	return func(e *Extractor) { e.maxChars = n }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

func NewExtractor(c Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer: c,
		sem:       make(chan struct{}, 10),
		attempts:  3,
		backoff:   500 * time.Millisecond,
		maxChars:  100000,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ service.FeatureExtractor = (*Extractor)(nil)

// Extract returns the normalized bundle or an error wrapping models.ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, in service.ExtractionInput) (models.FeatureBundle, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return models.FeatureBundle{}, fmt.Errorf("%w: empty transcript", models.ErrExtractionFailed)
	}
	prompt, truncated := buildPrompt(in, e.maxChars)
	if truncated {
		metrics.TranscriptsTruncated.Inc()
		e.log.Debug("transcript truncated", logger.String("ticker", in.Ticker), logger.String("date", in.Date))
	}
	start := time.Now()

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return models.FeatureBundle{}, fmt.Errorf("%w: %v", models.ErrExtractionFailed, ctx.Err())
	}

	attempts := max(e.attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		var b models.FeatureBundle
		b, err = e.once(ctx, prompt)
		if err == nil {
			metrics.ExtractionAttempts.WithLabelValues("ok").Inc()
			metrics.ExtractionLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())
			return b, nil
		}
		metrics.ExtractionAttempts.WithLabelValues("error").Inc()
		e.log.Warn("extraction attempt failed",
			logger.String("ticker", in.Ticker), logger.String("date", in.Date),
			logger.Int("attempt", i), logger.Error(err))
		if i == attempts {
			break
		}
		// simple backoff
		select {
		case <-time.After(time.Duration(i) * e.backoff):
		case <-ctx.Done():
			return models.FeatureBundle{}, fmt.Errorf("%w: %v", models.ErrExtractionFailed, ctx.Err())
		}
	}
	metrics.ExtractionLatency.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	return models.FeatureBundle{}, fmt.Errorf("%w: %v", models.ErrExtractionFailed, err)
}

func (e *Extractor) once(ctx context.Context, prompt string) (models.FeatureBundle, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return models.FeatureBundle{}, err
		}
	}
	text, err := e.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return models.FeatureBundle{}, err
	}
	return ParseBundle(text)
}

// rawBundle mirrors the response schema with pointers so missing sections are detectable.
type rawBundle struct {
	Numbers        *models.NumbersAssessment    `json:"numbers"`
	Tone           *models.ToneAssessment       `json:"tone"`
	Narrative      *models.NarrativeAssessment  `json:"narrative"`
	Skepticism     *models.SkepticismAssessment `json:"skepticism"`
	RiskFocusScore *float64                     `json:"risk_focus_score"`
	Summary        string                       `json:"one_sentence_summary"`
}

var errMalformed = errors.New("malformed model output")

// ParseBundle decodes a model response into a normalized bundle. The JSON
// object may be wrapped in prose or a code fence.
func ParseBundle(text string) (models.FeatureBundle, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.FeatureBundle{}, fmt.Errorf("%w: no JSON object", errMalformed)
	}
	var raw rawBundle
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return models.FeatureBundle{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	var missing []string
	if raw.Numbers == nil {
		missing = append(missing, "numbers")
	}
	if raw.Tone == nil {
		missing = append(missing, "tone")
	}
	if raw.Narrative == nil {
		missing = append(missing, "narrative")
	}
	if raw.Skepticism == nil {
		missing = append(missing, "skepticism")
	}
	if raw.RiskFocusScore == nil {
		missing = append(missing, "risk_focus_score")
	}
	if len(missing) > 0 {
		return models.FeatureBundle{}, fmt.Errorf("%w: missing %s", errMalformed, strings.Join(missing, ", "))
	}
	b := models.FeatureBundle{
		Summary:        strings.TrimSpace(raw.Summary),
		Numbers:        *raw.Numbers,
		Tone:           *raw.Tone,
		RiskFocusScore: riskScore(*raw.RiskFocusScore),
		Narrative:      *raw.Narrative,
		Skepticism:     *raw.Skepticism,
	}
	return b.Normalize(), nil
}

// riskScore clamps before converting; float to int overflow is undefined.
func riskScore(v float64) int {
	v = math.Max(models.RiskScoreMin, math.Min(models.RiskScoreMax, v))
	return int(math.Round(v))
}
