package chat

import (
	"context"
	"time"
)

type Message struct {
	Role      string
	Text      string
	CreatedAt time.Time
}

// ChatRef identifies the chat owned by the user with Email.
type ChatRef struct {
	ChatId string
	UserId string
	Email  string
}

// Exchange is one prompt and the reply generated for it. Both messages are
// stamped with At.
type Exchange struct {
	Prompt    string
	Answer    string
	Generator string
	At        time.Time
}

type Store interface {
	// ResolveChat finds or creates the user with the given email and that
	// user's chat. Concurrent calls for the same email resolve to the same chat.
	ResolveChat(ctx context.Context, email string) (ChatRef, error)

	// ListMessages returns the messages of a chat ordered by creation time,
	// oldest first. A chat without messages yields an empty, non-nil slice.
	ListMessages(ctx context.Context, chatId string) ([]Message, error)

	// AppendExchange writes the user prompt followed by the ai reply. Either
	// both messages are stored or neither is.
	AppendExchange(ctx context.Context, chatId string, exchange Exchange) error
}
