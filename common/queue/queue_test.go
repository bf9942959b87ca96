package queue

import (
	"context"
	"testing"
	"time"

	"github.com/placard/signcore/common/logger"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := NewMemoryQueue(logger.New("error", "json"))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	err := q.Subscribe(ctx, "test.topic", func(ctx context.Context, key string, value []byte) error {
		received <- key + ":" + string(value)
		return nil
	})
	require.NoError(t, err)

	err = q.Publish(ctx, "test.topic", "k1", []byte("hello"))
	require.NoError(t, err)

	select {
	case got := <-received:
		require.Equal(t, "k1:hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueue_TopicsAreIsolated(t *testing.T) {
	q := NewMemoryQueue(logger.New("error", "json"))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 2)
	err := q.Subscribe(ctx, "topic.a", func(ctx context.Context, key string, value []byte) error {
		received <- string(value)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, "topic.b", "k", []byte("other")))
	require.NoError(t, q.Publish(ctx, "topic.a", "k", []byte("mine")))

	select {
	case got := <-received:
		require.Equal(t, "mine", got)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueue_CloseIsIdempotent(t *testing.T) {
	q := NewMemoryQueue(logger.New("error", "json"))
	require.NoError(t, q.Publish(context.Background(), "t", "k", []byte("v")))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
