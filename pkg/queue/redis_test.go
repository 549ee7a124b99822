package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 3, 14, 0, 0, 0, time.UTC)

type fakeJob struct {
	err  error
	seen []string
}

func (j *fakeJob) Name() string { return "fake-job" }
func (j *fakeJob) Type() string { return "fake" }

func (j *fakeJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.seen = append(j.seen, string(payload))
	return j.err
}

func newTestQueue(t *testing.T, job Job) (*RedisQueue, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	opts := []Option{
		WithKeyPrefix("t"),
		WithConfig(Config{RetryLimit: 2, RetryDelay: 10 * time.Second}),
	}
	if job != nil {
		opts = append(opts, WithJobs(job))
	}
	q := NewRedisQueue(db, nil, opts...)
	q.now = func() time.Time { return fixedNow }
	q.newID = func() string { return "msg-1" }
	return q, mock
}

func encode(t *testing.T, m Message) []byte {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func baseMessage() Message {
	return Message{
		ID:         "msg-1",
		Type:       "fake",
		Payload:    json.RawMessage(`{"ticker":"AAPL"}`),
		EnqueuedAt: fixedNow,
	}
}

func TestPublishMessage(t *testing.T) {
	q, mock := newTestQueue(t, nil)

	mock.ExpectLPush("t:ready", encode(t, baseMessage())).SetVal(1)

	err := q.PublishMessage(context.Background(), "fake", map[string]string{"ticker": "AAPL"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishMessage_RedisDown(t *testing.T) {
	q, mock := newTestQueue(t, nil)

	mock.ExpectLPush("t:ready", encode(t, baseMessage())).SetErr(errors.New("connection refused"))

	err := q.PublishMessage(context.Background(), "fake", map[string]string{"ticker": "AAPL"})
	assert.ErrorContains(t, err, "lpush t:ready")
}

func TestHandle_Success(t *testing.T) {
	job := &fakeJob{}
	q, mock := newTestQueue(t, job)

	q.handle(context.Background(), string(encode(t, baseMessage())))

	assert.Equal(t, []string{`{"ticker":"AAPL"}`}, job.seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_TransientSchedulesRetry(t *testing.T) {
	job := &fakeJob{err: errors.New("upstream timeout")}
	q, mock := newTestQueue(t, job)

	retry := baseMessage()
	retry.Attempts = 1
	retry.LastError = "upstream timeout"
	mock.ExpectZAdd("t:delayed", redis.Z{
		Score:  float64(fixedNow.Add(10 * time.Second).Unix()),
		Member: encode(t, retry),
	}).SetVal(1)

	q.handle(context.Background(), string(encode(t, baseMessage())))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_BackoffGrowsWithAttempts(t *testing.T) {
	job := &fakeJob{err: errors.New("upstream timeout")}
	q, mock := newTestQueue(t, job)

	in := baseMessage()
	in.Attempts = 1
	retry := in
	retry.Attempts = 2
	retry.LastError = "upstream timeout"
	mock.ExpectZAdd("t:delayed", redis.Z{
		Score:  float64(fixedNow.Add(20 * time.Second).Unix()),
		Member: encode(t, retry),
	}).SetVal(1)

	q.handle(context.Background(), string(encode(t, in)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_DeadLetters(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
		want     string
	}{
		{"permanent", Permanent(errors.New("bad payload")), 0, "bad payload"},
		{"retries exhausted", errors.New("upstream timeout"), 2, "upstream timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, mock := newTestQueue(t, &fakeJob{err: tc.err})

			in := baseMessage()
			in.Attempts = tc.attempts
			dead := in
			dead.LastError = tc.want
			mock.ExpectLPush("t:dead", encode(t, dead)).SetVal(1)

			q.handle(context.Background(), string(encode(t, in)))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandle_UnknownType(t *testing.T) {
	q, mock := newTestQueue(t, &fakeJob{})

	in := baseMessage()
	in.Type = "other"
	dead := in
	dead.LastError = "no job for type other"
	mock.ExpectLPush("t:dead", encode(t, dead)).SetVal(1)

	q.handle(context.Background(), string(encode(t, in)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_Undecodable(t *testing.T) {
	q, mock := newTestQueue(t, &fakeJob{})

	mock.ExpectLPush("t:dead", "not json").SetVal(1)

	q.handle(context.Background(), "not json")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteDue(t *testing.T) {
	q, mock := newTestQueue(t, nil)

	mock.ExpectZRangeByScore("t:delayed", &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprint(fixedNow.Unix()),
	}).SetVal([]string{"a", "b"})
	mock.ExpectZRem("t:delayed", "a").SetVal(1)
	mock.ExpectLPush("t:ready", "a").SetVal(1)
	mock.ExpectZRem("t:delayed", "b").SetVal(0)

	moved, err := q.promoteDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, moved, "b was taken by another promoter")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_Duplicate(t *testing.T) {
	q, _ := newTestQueue(t, &fakeJob{})
	assert.ErrorContains(t, q.Register(&fakeJob{}), `type "fake" already handled`)
}

func TestStart_PingFailure(t *testing.T) {
	q, mock := newTestQueue(t, nil)
	mock.ExpectPing().SetErr(errors.New("refused"))

	assert.ErrorContains(t, q.Start(), "redis ping: refused")
	assert.NoError(t, q.Stop(context.Background()), "stop on a queue that never ran")
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad")
	err := fmt.Errorf("job: %w", Permanent(base))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}

func TestDecode(t *testing.T) {
	type payload struct {
		Ticker string `json:"ticker"`
	}

	p, err := Decode[payload](json.RawMessage(`{"ticker":"MSFT"}`))
	require.NoError(t, err)
	assert.Equal(t, "MSFT", p.Ticker)

	_, err = Decode[payload](nil)
	assert.Error(t, err)
	_, err = Decode[payload](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
