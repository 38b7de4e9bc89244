package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/chatbot"
	"github.com/eldtechnologies/respoke-chatbot/internal/store"
)

// TokenIssuer issues Respoke client tokens for browser endpoints.
type TokenIssuer interface {
	GetToken(ctx context.Context, endpointID string) (json.RawMessage, error)
}

// SocketStatus reports the state of the Respoke application socket.
type SocketStatus interface {
	SocketConnected() bool
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	bot    *chatbot.Bot
	tokens TokenIssuer
	socket SocketStatus
	redis  *store.RedisStore
	logger zerolog.Logger
}

// NewHandler creates a new Handler. tokens, socket and redis may be nil
// when the corresponding service is not configured.
func NewHandler(bot *chatbot.Bot, tokens TokenIssuer, socket SocketStatus, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{bot: bot, tokens: tokens, socket: socket, redis: redis, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeID trims an identifier and limits it to 100 characters, removing control characters.
func sanitizeID(id string) string {
	id = strings.TrimSpace(id)

	id = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, id)

	if len(id) > 100 {
		id = id[:100]
	}

	return id
}
