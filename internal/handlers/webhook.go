package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eldtechnologies/respoke-chatbot/internal/chatbot"
	"github.com/eldtechnologies/respoke-chatbot/internal/ids"
	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// maxWebhookBody bounds how much of a delivery is read. Larger bodies fail
// to decode and are acknowledged like any other undecodable delivery.
const maxWebhookBody = 1 << 20

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// Webhook receives Respoke webhook events. Respoke retries deliveries that
// fail, so every request is acknowledged with 200, even ones that cannot
// be decoded.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	eventID := ids.NewEventID()

	var env models.Envelope
	body := http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		metrics.DispatchFailures.WithLabelValues("decode").Inc()
		h.logger.Warn().
			Err(err).
			Str("event_id", eventID).
			Msg("undecodable webhook body")
	} else {
		h.bot.Dispatch(chatbot.WithEventID(r.Context(), eventID), &env)
	}

	h.JSON(w, http.StatusOK, WebhookResponse{Status: "ok", EventID: eventID})
}
