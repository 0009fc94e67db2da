package migration_2

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMessage struct {
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&ChatMessage{}, "metadata"); err != nil {
		return fmt.Errorf("error adding metadata column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&ChatMessage{}, "metadata"); err != nil {
		return fmt.Errorf("error dropping metadata column: %w", err)
	}
	return nil
}
