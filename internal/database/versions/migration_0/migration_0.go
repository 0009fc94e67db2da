package migration_0

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Snapshot of the first schema. Chats were found-before-created and carried no
// uniqueness constraint on their owner.

type User struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

type Chat struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type ChatMessage struct {
	Id        uint      `gorm:"primaryKey;autoIncrement"`
	ChatId    uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_order,priority:1"`
	Chat      *Chat     `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
	Role      string    `gorm:"size:8;not null;check:role IN ('user','ai')"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_chat_messages_order,priority:2"`
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Chat{}, &ChatMessage{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
