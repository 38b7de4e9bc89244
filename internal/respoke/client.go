// Package respoke talks to the Respoke REST API and application socket.
package respoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// DefaultBaseURL is the Respoke staging API.
const DefaultBaseURL = "https://api-st.respoke.io"

// APIError is a non-2xx response from Respoke.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("respoke error %d: %s", e.StatusCode, e.Message)
}

// Client is a Respoke REST API client authenticated with the app secret.
type Client struct {
	BaseURL    string
	AppID      string
	AppSecret  string
	TokenTTL   int
	HTTPClient *http.Client
}

// NewClient creates a new Respoke client.
func NewClient(baseURL, appID, appSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AppID:      appID,
		AppSecret:  appSecret,
		TokenTTL:   86400,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("App-Secret", c.AppSecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	metrics.RespokeLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
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
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

// TokenRequest is the body sent to the token endpoint.
type TokenRequest struct {
	AppID      string `json:"appId"`
	EndpointID string `json:"endpointId"`
	TTL        int    `json:"ttl"`
}

// GetToken requests a client token for endpointID. The Respoke response is
// returned verbatim so the browser client can read it directly.
func (c *Client) GetToken(ctx context.Context, endpointID string) (json.RawMessage, error) {
	respBody, err := c.doRequest(ctx, "token", http.MethodPost, "/v1/tokens", TokenRequest{
		AppID:      c.AppID,
		EndpointID: endpointID,
		TTL:        c.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(respBody), nil
}

// PublishGroupMessage publishes message to a group over HTTPS.
func (c *Client) PublishGroupMessage(ctx context.Context, group, message string) error {
	path := "/v1/channels/" + url.PathEscape(group) + "/publish"
	_, err := c.doRequest(ctx, "publish", http.MethodPost, path, map[string]string{"message": message})
	return err
}

// GetConnections lists the live connections of an endpoint.
func (c *Client) GetConnections(ctx context.Context, endpointID string) ([]models.Connection, error) {
	path := fmt.Sprintf("/v1/apps/%s/endpoints/%s/connections", url.PathEscape(c.AppID), url.PathEscape(endpointID))
	respBody, err := c.doRequest(ctx, "connections", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var conns []models.Connection
	if err := json.Unmarshal(respBody, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// JoinGroups adds a connection of endpointID to groups.
func (c *Client) JoinGroups(ctx context.Context, endpointID, connectionID string, groups []string) error {
	path := fmt.Sprintf("/v1/apps/%s/endpoints/%s/connections/%s",
		url.PathEscape(c.AppID), url.PathEscape(endpointID), url.PathEscape(connectionID))
	_, err := c.doRequest(ctx, "join", http.MethodPut, path, map[string][]string{"groups": groups})
	return err
}

// GetMembers lists the subscribers of a group.
func (c *Client) GetMembers(ctx context.Context, group string) ([]models.Member, error) {
	path := "/v1/channels/" + url.PathEscape(group) + "/subscribers/"
	respBody, err := c.doRequest(ctx, "members", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var members []models.Member
	if err := json.Unmarshal(respBody, &members); err != nil {
		return nil, err
	}
	return members, nil
}
