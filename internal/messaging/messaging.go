package messaging

import (
	"context"
	"time"
)

const (
	ExchangeQueue   = "chat_exchanges"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// ExchangePayload describes one prompt/answer pair after it has been durably
// written to a chat.
type ExchangePayload struct {
	ChatId    string
	Email     string
	Prompt    string
	Answer    string
	Generator string
	CreatedAt time.Time
}

type Publisher interface {
	PublishExchange(ctx context.Context, payload ExchangePayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
