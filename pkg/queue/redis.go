package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"EarnRev/pkg/logger"
)

// Redis layout under the key prefix:
//
//	<prefix>:ready    LIST  messages waiting for a worker (LPUSH / BRPOP)
//	<prefix>:delayed  ZSET  retries scored by unix due time
//	<prefix>:dead     LIST  messages that failed for good
type keys struct {
	ready   string
	delayed string
	dead    string
}

func newKeys(prefix string) keys {
	return keys{
		ready:   prefix + ":ready",
		delayed: prefix + ":delayed",
		dead:    prefix + ":dead",
	}
}

// RedisQueue publishes messages and, when jobs are registered, runs workers
// that consume them. A queue without jobs is a plain publisher.
type RedisQueue struct {
	client *redis.Client
	log    *logger.Logger
	cfg    Config
	keys   keys
	jobs   map[string]Job

	promoteEvery time.Duration
	now          func() time.Time
	newID        func() string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*RedisQueue)

// WithKeyPrefix sets the Redis key prefix (default "queue").
func WithKeyPrefix(prefix string) Option {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.keys = newKeys(prefix)
		}
	}
}

// WithConfig sets the worker settings.
func WithConfig(cfg Config) Option {
	return func(q *RedisQueue) {
		q.cfg = cfg.withDefaults()
	}
}

// WithJobs registers jobs at construction. A duplicate type keeps the first.
func WithJobs(jobs ...Job) Option {
	return func(q *RedisQueue) {
		for _, j := range jobs {
			if err := q.Register(j); err != nil {
				q.log.Warn("queue: job not registered", logger.Error(err))
			}
		}
	}
}

func NewRedisQueue(client *redis.Client, log *logger.Logger, opts ...Option) *RedisQueue {
	if log == nil {
		log = logger.Nop()
	}
	q := &RedisQueue{
		client:       client,
		log:          log,
		cfg:          Config{}.withDefaults(),
		keys:         newKeys("queue"),
		jobs:         make(map[string]Job),
		promoteEvery: 5 * time.Second,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register adds a job before Start.
func (q *RedisQueue) Register(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("register %s: queue already running", job.Name())
	}
	if _, ok := q.jobs[job.Type()]; ok {
		return fmt.Errorf("register %s: type %q already handled", job.Name(), job.Type())
	}
	q.jobs[job.Type()] = job
	return nil
}

// Start checks the connection and launches the workers and the retry
// promoter when jobs are registered.
func (q *RedisQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	q.running = true
	if len(q.jobs) == 0 {
		q.log.Info("redis queue publisher ready", logger.String("key", q.keys.ready))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.wg.Add(1)
	go q.promoter(ctx)

	types := make([]string, 0, len(q.jobs))
	for t := range q.jobs {
		types = append(types, t)
	}
	q.log.Info("redis queue workers started",
		logger.Int("workers", q.cfg.Workers),
		logger.Strings("types", types),
		logger.String("key", q.keys.ready))
	return nil
}

// Stop cancels the workers and waits for in-flight messages. Messages whose
// handler was cut short are put back on the ready list.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for queue workers: %w", ctx.Err())
	}
}

// PublishMessage wraps payload in a Message and pushes it to the ready list.
func (q *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:         q.newID(),
		Type:       msgType,
		Payload:    raw,
		EnqueuedAt: q.now().UTC(),
	}
	return q.push(ctx, q.keys.ready, msg)
}

func (q *RedisQueue) push(ctx context.Context, key string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for ctx.Err() == nil {
		res, err := q.client.BRPop(ctx, q.cfg.PollTimeout, q.keys.ready).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return
		default:
			q.log.Error("queue: brpop failed", logger.Int("worker", id), logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) == 2 {
			q.handle(ctx, res[1])
		}
	}
}

// handle runs one raw message and decides its fate: done, retried later,
// requeued on shutdown, or moved to the dead list.
func (q *RedisQueue) handle(ctx context.Context, raw string) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		q.log.Error("queue: undecodable message", logger.Error(err))
		if err := q.client.LPush(context.WithoutCancel(ctx), q.keys.dead, raw).Err(); err != nil {
			q.log.Error("queue: bury failed", logger.Error(err))
		}
		return
	}

	job, ok := q.jobs[msg.Type]
	if !ok {
		msg.LastError = "no job for type " + msg.Type
		q.bury(ctx, msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	fields := []logger.Field{
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Duration("elapsed", time.Since(start)),
	}

	switch {
	case err == nil:
		q.log.Debug("queue: message done", fields...)
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		q.log.Warn("queue: message interrupted, requeued", fields...)
		if err := q.push(context.WithoutCancel(ctx), q.keys.ready, msg); err != nil {
			q.log.Error("queue: requeue failed", logger.String("id", msg.ID), logger.Error(err))
		}
	case IsPermanent(err) || msg.Attempts >= q.cfg.RetryLimit:
		msg.LastError = err.Error()
		q.log.Error("queue: message failed", append(fields, logger.Error(err))...)
		q.bury(ctx, msg)
	default:
		msg.Attempts++
		msg.LastError = err.Error()
		due := q.now().Add(q.cfg.backoff(msg.Attempts))
		q.log.Warn("queue: message retry scheduled",
			append(fields, logger.Error(err), logger.String("due", due.UTC().Format(time.RFC3339)))...)
		q.schedule(ctx, msg, due)
	}
}

func (q *RedisQueue) bury(ctx context.Context, msg Message) {
	if err := q.push(context.WithoutCancel(ctx), q.keys.dead, msg); err != nil {
		q.log.Error("queue: bury failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (q *RedisQueue) schedule(ctx context.Context, msg Message, due time.Time) {
	b, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("queue: marshal retry", logger.Error(err))
		return
	}
	z := redis.Z{Score: float64(due.Unix()), Member: b}
	if err := q.client.ZAdd(context.WithoutCancel(ctx), q.keys.delayed, z).Err(); err != nil {
		q.log.Error("queue: schedule retry failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (q *RedisQueue) promoter(ctx context.Context) {
	defer q.wg.Done()

	t := time.NewTicker(q.promoteEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				q.log.Error("queue: promote retries failed", logger.Error(err))
			}
		}
	}
}

// promoteDue moves due retries back to the ready list. ZREM decides which
// instance owns a member, so concurrent promoters never duplicate a message.
func (q *RedisQueue) promoteDue(ctx context.Context) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.keys.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore: %w", err)
	}

	moved := 0
	for _, m := range due {
		n, err := q.client.ZRem(ctx, q.keys.delayed, m).Result()
		if err != nil {
			return moved, fmt.Errorf("zrem: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.keys.ready, m).Err(); err != nil {
			return moved, fmt.Errorf("lpush: %w", err)
		}
		moved++
	}
	return moved, nil
}

var _ Publisher = (*RedisQueue)(nil)
