package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-backend/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueuePublishExchange(t *testing.T) {
	queue := messaging.NewInMemoryQueue(4)
	defer queue.Close()

	payload := messaging.ExchangePayload{
		ChatId:    "chat-1",
		Email:     "a@x.com",
		Prompt:    "Hello",
		Answer:    "Hi!",
		Generator: "fake/model",
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, queue.PublishExchange(context.Background(), payload))

	select {
	case task := <-queue.Tasks():
		assert.Equal(t, messaging.ExchangeQueue, task.Type())

		var received messaging.ExchangePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &received))
		assert.Equal(t, payload, received)
		assert.NoError(t, task.Ack())
	default:
		t.Fatal("expected a queued task")
	}
}

func TestInMemoryQueueDropsWhenFull(t *testing.T) {
	queue := messaging.NewInMemoryQueue(1)
	defer queue.Close()

	require.NoError(t, queue.PublishExchange(context.Background(), messaging.ExchangePayload{ChatId: "1"}))
	assert.ErrorIs(t, queue.PublishExchange(context.Background(), messaging.ExchangePayload{ChatId: "2"}), messaging.ErrQueueFull)
}

func TestInMemoryQueueCloseWhilePublishing(t *testing.T) {
	queue := messaging.NewInMemoryQueue(8)

	drained := make(chan int)
	go func() {
		count := 0
		for range queue.Tasks() {
			count++
		}
		drained <- count
	}()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := queue.PublishExchange(context.Background(), messaging.ExchangePayload{ChatId: "chat"})
				if err == nil {
					mu.Lock()
					published++
					mu.Unlock()
					continue
				}
				if errors.Is(err, messaging.ErrQueueClosed) {
					return
				}
				assert.ErrorIs(t, err, messaging.ErrQueueFull)
			}
		}()
	}

	queue.Close()
	wg.Wait()
	queue.Close()

	assert.Equal(t, published, <-drained)
	assert.ErrorIs(t, queue.PublishExchange(context.Background(), messaging.ExchangePayload{ChatId: "late"}), messaging.ErrQueueClosed)
}
