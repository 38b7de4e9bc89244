package models

import "encoding/json"

// Envelope is a webhook event as delivered by Respoke.
type Envelope struct {
	Header     *Header         `json:"header"`
	Message    json.RawMessage `json:"message,omitempty"` // string or object
	Body       json.RawMessage `json:"body,omitempty"`    // endpoint messages
	EndpointID string          `json:"endpointId,omitempty"`
	Group      string          `json:"group,omitempty"`
}

// Header carries the routing fields of an Envelope.
type Header struct {
	Type       string      `json:"type"`
	From       string      `json:"from,omitempty"`
	Channel    string      `json:"channel,omitempty"`
	Timestamp  json.Number `json:"timestamp,omitempty"`
	EndpointID string      `json:"endpointId,omitempty"`
	Group      string      `json:"group,omitempty"`
}
