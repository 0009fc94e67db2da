package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("in memory queue is full")
	ErrQueueClosed = errors.New("in memory queue is closed")
)

type inMemoryTask struct {
	queue   string
	payload []byte
}

func (t *inMemoryTask) Type() string {
	return t.queue
}

func (t *inMemoryTask) Payload() []byte {
	return t.payload
}

func (t *inMemoryTask) Ack() error {
	return nil
}

func (t *inMemoryTask) Nack() error {
	return nil
}

func (t *inMemoryTask) Reject() error {
	return nil
}

type InMemoryQueue struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan Task
}

func NewInMemoryQueue(size int) *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make(chan Task, size),
	}
}

// Publishing never blocks the caller: when nobody drains the queue the task is
// dropped and ErrQueueFull is returned.
func (q *InMemoryQueue) publishTaskInternal(queue string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- &inMemoryTask{queue: queue, payload: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *InMemoryQueue) PublishExchange(ctx context.Context, payload ExchangePayload) error {
	return q.publishTaskInternal(ExchangeQueue, payload)
}

func (q *InMemoryQueue) Tasks() <-chan Task {
	return q.tasks
}

// Close is safe to call while publishers are running; publishes that come
// after it return ErrQueueClosed.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
}
