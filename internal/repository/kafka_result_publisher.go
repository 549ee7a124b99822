package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/repository"
	pkgkafka "EarnRev/pkg/kafka"
)

// batchPublisher is the subset of *pkgkafka.Producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaResultPublisher emits each analysis result as a JSON message keyed by
// ticker. Every message carries a fresh trace_id header.
type KafkaResultPublisher struct {
	producer batchPublisher
	topic    string
}

var _ repository.ResultPublisher = (*KafkaResultPublisher)(nil)

// NewKafkaResultPublisher creates the publisher.
func NewKafkaResultPublisher(producer batchPublisher, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.AnalysisResult) error {
	return p.PublishBatch(ctx, []*models.AnalysisResult{r})
}

func (p *KafkaResultPublisher) PublishBatch(ctx context.Context, rs []*models.AnalysisResult) error {
	if len(rs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(r.Ticker),
			Value:   r,
			Headers: []kafka.Header{{Key: pkgkafka.HeaderTraceID, Value: []byte(uuid.NewString())}},
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
