package migration_1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const chatOwnerIndex = "idx_chats_user_id"

type Chat struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chats_user_id"`
	CreatedAt time.Time
}

type ChatMessage struct {
	Id     uint      `gorm:"primaryKey"`
	ChatId uuid.UUID `gorm:"type:uuid"`
}

// Migration folds duplicate chats created by racing first contacts into the
// oldest chat of each user, then makes chats.user_id unique.
func Migration(db *gorm.DB) error {
	var chats []Chat
	if err := db.Order("created_at ASC").Find(&chats).Error; err != nil {
		return fmt.Errorf("error listing chats: %w", err)
	}

	keep := make(map[uuid.UUID]uuid.UUID)
	for _, chat := range chats {
		first, ok := keep[chat.UserId]
		if !ok {
			keep[chat.UserId] = chat.Id
			continue
		}

		if err := db.Model(&ChatMessage{}).Where("chat_id = ?", chat.Id).Update("chat_id", first).Error; err != nil {
			return fmt.Errorf("error moving messages of duplicate chat %v: %w", chat.Id, err)
		}
		if err := db.Delete(&Chat{}, "id = ?", chat.Id).Error; err != nil {
			return fmt.Errorf("error deleting duplicate chat %v: %w", chat.Id, err)
		}
	}

	if db.Migrator().HasIndex(&Chat{}, chatOwnerIndex) {
		if err := db.Migrator().DropIndex(&Chat{}, chatOwnerIndex); err != nil {
			return fmt.Errorf("error dropping chat owner index: %w", err)
		}
	}

	if err := db.Migrator().CreateIndex(&Chat{}, chatOwnerIndex); err != nil {
		return fmt.Errorf("error creating unique chat owner index: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropIndex(&Chat{}, chatOwnerIndex); err != nil {
		return fmt.Errorf("error dropping unique chat owner index: %w", err)
	}
	return nil
}
