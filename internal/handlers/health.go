package handlers

import (
	"context"
	"net/http"
	"os"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string           `json:"status"` // "healthy" or "degraded"
	Version      string           `json:"version"`
	Instance     string           `json:"instance,omitempty"`
	ConnectionID string           `json:"connection_id,omitempty"`
	Checks       map[string]Check `json:"checks"`
	Timestamp    string           `json:"timestamp"`
}

// Health handles the health check endpoint. Redis is optional and only
// checked when configured; the Respoke socket is always required.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Check Respoke socket
	if h.socket != nil && h.socket.SocketConnected() {
		checks["respoke_socket"] = Check{Status: "pass"}
	} else {
		checks["respoke_socket"] = Check{Status: "fail", Message: "not connected"}
		allHealthy = false
	}

	// Check Redis
	if h.redis != nil {
		redisStart := time.Now()
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["redis"] = Check{Status: "pass", Latency: time.Since(redisStart).String()}
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:       status,
		Version:      version,
		Instance:     os.Getenv("HOSTNAME"),
		ConnectionID: h.bot.ConnectionID(),
		Checks:       checks,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Webhook string `json:"webhook"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "respoke-chatbot",
		Version: version,
		Webhook: "POST /",
	})
}
