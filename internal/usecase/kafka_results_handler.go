package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"EarnRev/internal/domain/models"
	domrepo "EarnRev/internal/domain/repository"
	pkgkafka "EarnRev/pkg/kafka"
)

// KafkaResultsHandler drains published analyses into the result store.
type KafkaResultsHandler struct {
	topic   string
	store   domrepo.ResultStore
	metrics domrepo.Metrics
}

func NewKafkaResultsHandler(topic string, store domrepo.ResultStore, metrics domrepo.Metrics) *KafkaResultsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &KafkaResultsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaResultsHandler) Topic() string { return h.topic }

// Handle expects one JSON-encoded AnalysisResult per message.
func (h *KafkaResultsHandler) Handle(ctx context.Context, b []byte) error {
	var r models.AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if r.Ticker == "" {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("result without ticker")
	}

	start := time.Now()
	err := h.store.StoreResult(ctx, &r)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordResultSent(BackendClickHouse)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaResultsHandler)(nil)
