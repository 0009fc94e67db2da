package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser string = "user"
	RoleAI   string = "ai"
)

type User struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time

	Chat *Chat `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

// Chat is the single conversation thread owned by a user. The unique index on
// UserId is what keeps concurrent first contacts from creating two threads.
type Chat struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time

	Messages []ChatMessage `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
}

// ChatMessage rows are append only. Id is autoincrementing so that messages
// written with the same CreatedAt still read back in insertion order.
type ChatMessage struct {
	Id        uint           `gorm:"primaryKey;autoIncrement"`
	ChatId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_order,priority:1"`
	Role      string         `gorm:"size:8;not null;check:role IN ('user','ai')"`
	Text      string         `gorm:"type:text;not null"`
	CreatedAt time.Time      `gorm:"index:idx_chat_messages_order,priority:2"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"` // {"generator": "<provider>/<model>"}
}
