package models

// StoredMessage is a group message kept in history for replay.
type StoredMessage struct {
	Timestamp int64  `json:"ts"` // Unix ms, as reported by Respoke
	From      string `json:"from"`
	Body      string `json:"body"`
}

// GroupSummary describes the history held for one group.
type GroupSummary struct {
	ID            string `json:"id"`
	MessageCount  int    `json:"message_count"`
	LastTimestamp int64  `json:"last_timestamp,omitempty"`
}
