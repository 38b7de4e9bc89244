// Package chatbot provides a client for the Respoke chatbot server.
package chatbot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultGroup is the group the bot announces presence to.
const DefaultGroup = "people"

// Client is a chatbot server API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new chatbot client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request and returns the response body.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chatbot error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

func (c *Client) getJSON(path string, v any) error {
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(respBody, v)
}

// Check is one dependency's health.
type Check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status       string           `json:"status"`
	Version      string           `json:"version"`
	ConnectionID string           `json:"connection_id,omitempty"`
	Checks       map[string]Check `json:"checks"`
	Timestamp    string           `json:"timestamp"`
}

// Health checks server health. A degraded server answers 503 with a body,
// which is still decoded and returned alongside the error.
func (c *Client) Health() (*HealthResponse, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("chatbot error %d: %s", resp.StatusCode, health.Status)
	}
	return &health, nil
}

// Group summarizes one group's stored history.
type Group struct {
	ID            string `json:"id"`
	MessageCount  int    `json:"message_count"`
	LastTimestamp int64  `json:"last_timestamp,omitempty"`
}

// GroupsResponse is the response from listing groups.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
	Total  int     `json:"total"`
}

// Groups lists groups with stored history.
func (c *Client) Groups() (*GroupsResponse, error) {
	var resp GroupsResponse
	if err := c.getJSON("/groups", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Message is one stored group message.
type Message struct {
	Timestamp int64  `json:"ts"`
	From      string `json:"from"`
	Body      string `json:"body"`
}

// HistoryResponse is the response from reading a group's history.
type HistoryResponse struct {
	Group    string    `json:"group"`
	Messages []Message `json:"messages"`
}

// History reads a group's stored history, oldest first.
func (c *Client) History(groupID string) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.getJSON("/groups/"+url.PathEscape(groupID)+"/history", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventHeader is the header of a webhook envelope.
type EventHeader struct {
	Type      string `json:"type"`
	From      string `json:"from,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Event is a webhook envelope as Respoke delivers it.
type Event struct {
	Header     EventHeader `json:"header"`
	Message    string      `json:"message,omitempty"`
	EndpointID string      `json:"endpointId,omitempty"`
}

// EventResponse is the webhook acknowledgement.
type EventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// SendEvent posts an envelope to the webhook, as Respoke would.
func (c *Client) SendEvent(ev Event) (*EventResponse, error) {
	body, _ := json.Marshal(ev)
	respBody, err := c.doRequest("POST", "/", body)
	if err != nil {
		return nil, err
	}

	var resp EventResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Say simulates a group message from an endpoint.
func (c *Client) Say(groupID, from, text string) (*EventResponse, error) {
	return c.SendEvent(Event{
		Header: EventHeader{
			Type:      "pubsub",
			From:      from,
			Channel:   groupID,
			Timestamp: time.Now().UnixMilli(),
		},
		Message: text,
	})
}

// Presence simulates an endpoint logging on or off.
func (c *Client) Presence(endpointID string, online bool) (*EventResponse, error) {
	typ := "endpointDisconnect"
	if online {
		typ = "endpointConnect"
	}
	return c.SendEvent(Event{
		Header:     EventHeader{Type: typ},
		EndpointID: endpointID,
	})
}

// Token requests a Respoke brokered-auth token for an endpoint. The token
// document is returned as Respoke sent it.
func (c *Client) Token(endpointID string) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]string{"endpointId": endpointID})
	respBody, err := c.doRequest("POST", "/token", body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(respBody), nil
}
