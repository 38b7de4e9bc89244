package respoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/ids"
	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
)

var (
	ErrInvalidMessage = errors.New("recipient and message are required")
	ErrNotConnected   = errors.New("respoke socket not connected")
)

const writeTimeout = 10 * time.Second

// Frame is a request sent over the application socket.
type Frame struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data,omitempty"`
}

// FrameResponse is Respoke's answer to a Frame.
type FrameResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// EndpointMessage is the payload of a message to a single endpoint.
type EndpointMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// GroupMessage is the payload of a group publish.
type GroupMessage struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// Socket is the bot's application-level WebSocket to Respoke. Endpoint
// messages can only be sent this way; the REST API refuses them.
type Socket struct {
	conn      *websocket.Conn
	appSecret string
	logger    zerolog.Logger

	writeMu   sync.Mutex
	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens the application socket authenticated with the app secret.
func Dial(ctx context.Context, socketURL, appSecret string, logger zerolog.Logger) (*Socket, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return nil, fmt.Errorf("respoke socket: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("app-secret", appSecret)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("respoke socket: handshake failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("respoke socket: %w", err)
	}

	s := &Socket{
		conn:      conn,
		appSecret: appSecret,
		logger:    logger.With().Str("component", "respoke_socket").Logger(),
		done:      make(chan struct{}),
	}
	s.connected.Store(true)
	metrics.SocketConnected.Set(1)

	go s.readLoop()
	return s, nil
}

// Connected reports whether the socket is usable.
func (s *Socket) Connected() bool {
	return s != nil && s.connected.Load()
}

// Done is closed once the socket disconnects.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// SendEndpointMessage sends message to a single endpoint.
func (s *Socket) SendEndpointMessage(to, message string) error {
	if to == "" || message == "" {
		return ErrInvalidMessage
	}
	return s.request(http.MethodPost, "/v1/messages", EndpointMessage{To: to, Message: message})
}

// SendGroupMessage publishes message to a group.
func (s *Socket) SendGroupMessage(group, message string) error {
	if group == "" || message == "" {
		return ErrInvalidMessage
	}
	path := "/v1/channels/" + url.PathEscape(group) + "/publish"
	return s.request(http.MethodPost, path, GroupMessage{Channel: group, Message: message})
}

func (s *Socket) request(method, path string, data any) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	frame := Frame{
		ID:      ids.NewFrameID(),
		Method:  method,
		URL:     path,
		Headers: map[string]string{"App-Secret": s.appSecret},
		Data:    data,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.markClosed()
		return fmt.Errorf("respoke socket: write %s %s: %w", method, path, err)
	}
	return nil
}

// readLoop consumes responses until the connection fails. Responses are
// not correlated with callers; errors are only logged.
func (s *Socket) readLoop() {
	defer s.markClosed()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("socket read failed")
			}
			return
		}

		var resp FrameResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.logger.Debug().Str("payload", string(data)).Msg("unparsed socket message")
			continue
		}
		if resp.Error != "" {
			s.logger.Warn().Str("frame_id", resp.ID).Str("error", resp.Error).Msg("respoke rejected request")
		}
	}
}

func (s *Socket) markClosed() {
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		metrics.SocketConnected.Set(0)
		s.conn.Close()
		close(s.done)
	})
}

// Close sends a close frame and tears the connection down.
func (s *Socket) Close() error {
	if !s.Connected() {
		return nil
	}
	s.writeMu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.markClosed()
	return err
}
