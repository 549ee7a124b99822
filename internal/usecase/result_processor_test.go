package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
)

type recordingMetrics struct {
	mu     sync.Mutex
	sent   map[string]int
	errors map[string]int
	ops    map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{sent: map[string]int{}, errors: map[string]int{}, ops: map[string]int{}}
}

func (m *recordingMetrics) RecordAnalysis(string)      {}
func (m *recordingMetrics) RecordEvent(string, string) {}

func (m *recordingMetrics) RecordResultSent(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[backend]++
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recordingMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
}

type fakePublisher struct {
	published []*models.AnalysisResult
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(_ context.Context, r *models.AnalysisResult) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, r)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, rs []*models.AnalysisResult) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, rs...)
	return nil
}

func (f *fakePublisher) Close() error { f.closed = true; return nil }

type fakeStore struct {
	mu     sync.Mutex
	stored []*models.AnalysisResult
	err    error
	closed bool
}

func (f *fakeStore) Init(context.Context) error   { return nil }
func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { f.closed = true; return nil }

func (f *fakeStore) StoreResult(_ context.Context, r *models.AnalysisResult) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, r)
	return nil
}

func (f *fakeStore) StoreBatch(ctx context.Context, rs []*models.AnalysisResult) error {
	for _, r := range rs {
		if err := f.StoreResult(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func TestResultProcessor_Routes(t *testing.T) {
	ctx := context.Background()
	r := &models.AnalysisResult{Ticker: "AAPL"}

	pub, store, m := &fakePublisher{}, &fakeStore{}, newRecordingMetrics()
	require.NoError(t, NewResultProcessor(pub, store, m, BackendKafka).Process(ctx, r))
	assert.Len(t, pub.published, 1)
	assert.Empty(t, store.stored)
	assert.Equal(t, 1, m.sent[BackendKafka])

	pub, store, m = &fakePublisher{}, &fakeStore{}, newRecordingMetrics()
	require.NoError(t, NewResultProcessor(pub, store, m, BackendClickHouse).Process(ctx, r))
	assert.Empty(t, pub.published)
	assert.Len(t, store.stored, 1)
	assert.Equal(t, 1, m.sent[BackendClickHouse])

	pub, store, m = &fakePublisher{}, &fakeStore{}, newRecordingMetrics()
	require.NoError(t, NewResultProcessor(pub, store, m, "").Process(ctx, r))
	assert.Empty(t, pub.published)
	assert.Empty(t, store.stored)
	assert.Empty(t, m.sent)
}

func TestResultProcessor_Errors(t *testing.T) {
	ctx := context.Background()
	r := &models.AnalysisResult{Ticker: "AAPL"}

	m := newRecordingMetrics()
	err := NewResultProcessor(&fakePublisher{err: errors.New("broker down")}, nil, m, BackendKafka).Process(ctx, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AAPL")
	assert.Equal(t, 1, m.errors["process"])

	err = NewResultProcessor(nil, nil, m, BackendClickHouse).Process(ctx, r)
	assert.Error(t, err)

	err = NewResultProcessor(nil, nil, m, "s3").Process(ctx, r)
	assert.ErrorContains(t, err, "unknown backend")

	assert.Error(t, NewResultProcessor(nil, nil, m, BackendKafka).Process(ctx, nil))
}

func TestResultProcessor_Batch(t *testing.T) {
	ctx := context.Background()
	store, m := &fakeStore{}, newRecordingMetrics()
	p := NewResultProcessor(nil, store, m, BackendClickHouse)

	require.NoError(t, p.ProcessBatch(ctx, nil))
	require.NoError(t, p.ProcessBatch(ctx, []*models.AnalysisResult{{Ticker: "A"}, {Ticker: "B"}}))
	assert.Len(t, store.stored, 2)
	assert.Equal(t, 2, m.sent[BackendClickHouse])
	assert.Equal(t, 1, m.ops["process_batch"])

	p.Close()
	assert.True(t, store.closed)
}
