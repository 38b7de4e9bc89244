package models

// Connection is one live connection of a Respoke endpoint.
type Connection struct {
	ID         string `json:"id"`
	EndpointID string `json:"endpointId,omitempty"`
}

// Member is a subscriber of a Respoke group.
type Member struct {
	EndpointID   string `json:"endpointId"`
	ConnectionID string `json:"connectionId"`
}
