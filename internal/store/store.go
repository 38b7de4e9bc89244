package store

import (
	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// History defines the group message history used by the bot.
// HistoryStore is the in-process implementation.
type History interface {
	// Append adds msg at the tail of the group's history and reports
	// whether the oldest message was evicted to make room.
	Append(groupID string, msg models.StoredMessage) bool

	// Ensure creates an empty history for the group if it has none.
	Ensure(groupID string)

	// Replay returns the group's history oldest first. Unknown groups
	// yield an empty slice.
	Replay(groupID string) []models.StoredMessage

	// Len returns the number of messages held for a group.
	Len(groupID string) int

	// Groups summarizes every group seen so far, including empty ones.
	Groups() []models.GroupSummary
}
