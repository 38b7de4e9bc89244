package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewEventID generates a time-ordered UUID v7 for a webhook delivery.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewFrameID generates a ULID for a socket request frame.
func NewFrameID() string {
	return ulid.Make().String()
}
