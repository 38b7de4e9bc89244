package handlers

import (
	"encoding/json"
	"net/http"
)

// TokenRequest is the browser client's token request.
type TokenRequest struct {
	EndpointID string `json:"endpointId"`
}

// Token issues a Respoke token so the browser client can connect as EndpointID.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		h.Error(w, http.StatusServiceUnavailable, "respoke is not configured")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.EndpointID = sanitizeID(req.EndpointID)
	if req.EndpointID == "" {
		h.Error(w, http.StatusBadRequest, "endpointId is required")
		return
	}

	h.logger.Info().Str("endpoint", req.EndpointID).Msg("client is requesting a token")

	token, err := h.tokens.GetToken(r.Context(), req.EndpointID)
	if err != nil {
		h.logger.Warn().Err(err).Str("endpoint", req.EndpointID).Msg("token request failed")
		h.Error(w, http.StatusBadGateway, "failed to obtain token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(token)
}
