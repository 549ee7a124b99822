package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EarnRev/pkg/config"
)

type fakeComponent struct {
	name     string
	startErr error
	calls    *[]string
}

func (f *fakeComponent) Start() error {
	*f.calls = append(*f.calls, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.calls = append(*f.calls, "stop:"+f.name)
	return nil
}

func testConfig() *config.Config {
	c := config.Default()
	c.Server.ShutdownTimeout = time.Second
	return c
}

func TestRunContext_StopsInReverseOrder(t *testing.T) {
	var calls []string
	app := New(testConfig(), nil, nil,
		WithQueueWorkers(&fakeComponent{name: "queue", calls: &calls}),
		WithCloser("cache", func() error { calls = append(calls, "close:cache"); return nil }),
		WithCloser("store", func() error { calls = append(calls, "close:store"); return errors.New("already closed") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.RunContext(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "close store: already closed")
	assert.Equal(t, []string{"start:queue", "stop:queue", "close:store", "close:cache"}, calls)
}

func TestRunContext_StartFailure(t *testing.T) {
	var calls []string
	app := New(testConfig(), nil, nil,
		WithQueueWorkers(&fakeComponent{name: "queue", calls: &calls}),
		WithQueueWorkers(&fakeComponent{name: "broken", startErr: errors.New("redis ping: refused"), calls: &calls}),
		WithCloser("cache", func() error { calls = append(calls, "close:cache"); return nil }),
	)

	err := app.RunContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start queue workers: redis ping: refused")
	assert.Equal(t, []string{"start:queue", "start:broken", "stop:queue", "close:cache"}, calls)
}

func TestWithKafkaConsumer_NoHandlers(t *testing.T) {
	app := New(testConfig(), nil, nil, WithKafkaConsumer(nil))
	assert.Empty(t, app.components)
}
