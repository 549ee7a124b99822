package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/internal/domain/models"
	pkgcache "EarnRev/pkg/cache"
	"EarnRev/pkg/queue"
)

type errAnalyzer struct{ err error }

func (e errAnalyzer) Analyze(context.Context, AnalyzeParams) (*models.AnalysisResult, error) {
	return nil, e.err
}

func TestAnalyzeJob_RunsAndRoutes(t *testing.T) {
	an := &stubAnalyzer{results: map[string]*models.AnalysisResult{"AAPL": {Ticker: "AAPL"}}}
	pub := &fakePublisher{}
	job := NewAnalyzeJob(an, NewResultProcessor(pub, nil, nil, BackendKafka), nil)

	assert.Equal(t, AnalyzeJobType, job.Type())

	require.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"ticker":"AAPL"}`)))
	require.Len(t, pub.published, 1)
	require.Len(t, an.seen, 1)
	assert.Equal(t, 8, an.seen[0].MaxEvents, "default applied")

	raw, _ := json.Marshal(models.AnalyzeJobPayload{Ticker: "AAPL", MaxEvents: 3})
	require.NoError(t, job.Handle(context.Background(), raw))
	assert.Equal(t, 3, an.seen[1].MaxEvents)
}

func TestAnalyzeJob_PermanentFailures(t *testing.T) {
	ctx := context.Background()

	job := NewAnalyzeJob(errAnalyzer{fmt.Errorf("%w: ZZZZ", models.ErrInvalidTicker)}, nil, nil)
	err := job.Handle(ctx, json.RawMessage(`{"ticker":"ZZZZ"}`))
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, models.ErrInvalidTicker)

	job = NewAnalyzeJob(errAnalyzer{models.ErrNoEventsFound}, nil, nil)
	err = job.Handle(ctx, json.RawMessage(`{"ticker":"ACME"}`))
	assert.True(t, queue.IsPermanent(err))
	assert.ErrorIs(t, err, models.ErrNoEventsFound)

	for _, raw := range []string{``, `42`, `{"max_events":3}`} {
		assert.True(t, queue.IsPermanent(job.Handle(ctx, json.RawMessage(raw))), raw)
	}
}

func TestAnalyzeJob_TransientFailuresRetry(t *testing.T) {
	job := NewAnalyzeJob(errAnalyzer{models.ErrUpstream}, nil, nil)
	err := job.Handle(context.Background(), json.RawMessage(`{"ticker":"AAPL"}`))
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.False(t, queue.IsPermanent(err))

	an := &stubAnalyzer{results: map[string]*models.AnalysisResult{"AAPL": {Ticker: "AAPL"}}}
	job = NewAnalyzeJob(an, NewResultProcessor(&fakePublisher{err: errors.New("broker down")}, nil, nil, BackendKafka), nil)
	err = job.Handle(context.Background(), json.RawMessage(`{"ticker":"AAPL"}`))
	assert.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestAnalyzeJob_Lock(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	ctx := context.Background()

	an := &stubAnalyzer{results: map[string]*models.AnalysisResult{"AAPL": {Ticker: "AAPL"}}}
	job := NewAnalyzeJob(an, nil, nil, WithJobLock(mem, time.Minute))

	held, err := mem.TryLock(ctx, "lock:analyze:AAPL", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, job.Handle(ctx, json.RawMessage(`{"ticker":"AAPL"}`)))
	assert.Empty(t, an.seen, "skipped while locked")

	require.NoError(t, mem.Unlock(ctx, "lock:analyze:AAPL"))
	require.NoError(t, job.Handle(ctx, json.RawMessage(`{"ticker":"AAPL"}`)))
	assert.Len(t, an.seen, 1)

	ok, err := mem.Exists(ctx, "lock:analyze:AAPL")
	require.NoError(t, err)
	assert.False(t, ok, "released after run")
}
