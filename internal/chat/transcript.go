package chat

import (
	"fmt"
	"strings"

	"chat-backend/internal/database"
)

// RenderTranscript formats messages as "[HH:MM] You: text" and
// "[HH:MM] AI: text" blocks separated by a blank line.
func RenderTranscript(messages []Message) string {
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		speaker := "AI"
		if msg.Role == database.RoleUser {
			speaker = "You"
		}
		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", msg.CreatedAt.UTC().Format("15:04"), speaker, msg.Text))
	}
	return strings.Join(blocks, "\n\n")
}
