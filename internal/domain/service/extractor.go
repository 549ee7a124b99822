package service

import (
	"context"

	"EarnRev/internal/domain/models"
)

// ExtractionInput carries the transcript and the quantitative context for one event.
type ExtractionInput struct {
	Ticker          string
	Date            string
	Quarter         string
	EPSActual       *float64
	EPSEstimate     *float64
	RevenueActual   *float64
	RevenueEstimate *float64
	Day0Return      *float64
	Transcript      string
}

// FeatureExtractor turns a transcript into a qualitative feature bundle.
// Any error is an extraction failure; callers substitute the neutral bundle.
type FeatureExtractor interface {
	Extract(ctx context.Context, in ExtractionInput) (models.FeatureBundle, error)
}
