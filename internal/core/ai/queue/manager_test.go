package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingClient holds every request until release is closed.
type blockingClient struct {
	started chan string
	release chan struct{}
}

func newBlockingClient() *blockingClient {
	return &blockingClient{started: make(chan string, 16), release: make(chan struct{})}
}

func (c *blockingClient) Complete(ctx context.Context, req *openrouter.Request) (*openrouter.Response, error) {
	c.started <- req.Model
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &openrouter.Response{Model: req.Model}, nil
}

func TestCompleteForwardsToClient(t *testing.T) {
	client := newBlockingClient()
	close(client.release)
	m := NewManager(client, 2, 4)
	defer m.Close()

	resp, err := m.Complete(context.Background(), &openrouter.Request{Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", resp.Model)
	assert.Equal(t, int64(1), m.Status().ProcessedCount)
}

func TestFullQueueIsRejected(t *testing.T) {
	client := newBlockingClient()
	m := NewManager(client, 1, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = m.Complete(context.Background(), &openrouter.Request{Model: "running"})
	}()
	<-client.started

	go func() {
		defer wg.Done()
		_, _ = m.Complete(context.Background(), &openrouter.Request{Model: "waiting"})
	}()
	require.Eventually(t, func() bool { return m.Status().QueueLength == 1 }, time.Second, 5*time.Millisecond)

	_, err := m.Complete(context.Background(), &openrouter.Request{Model: "rejected"})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)

	close(client.release)
	wg.Wait()
	m.Close()
	assert.Equal(t, int64(2), m.Status().ProcessedCount)
}

func TestCallerTimeout(t *testing.T) {
	client := newBlockingClient()
	m := NewManager(client, 1, 2)
	defer func() {
		close(client.release)
		m.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, &openrouter.Request{Model: "slow"})
	assert.ErrorIs(t, err, common.ErrRequestTimeout)
}

func TestClosedQueue(t *testing.T) {
	m := NewManager(newBlockingClient(), 1, 1)
	m.Close()
	m.Close()

	_, err := m.Complete(context.Background(), &openrouter.Request{Model: "late"})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)

	assert.Equal(t, Status{MaxQueueSize: 1, Workers: 1}, m.Status())
}
