package chatbot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// ErrMalformedEnvelope is returned when an envelope lacks the fields needed
// to route it.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Event type names as sent in header.type.
const (
	TypeMessage            = "message"
	TypePubSub             = "pubsub"
	TypeEndpointConnect    = "endpointConnect"
	TypeEndpointDisconnect = "endpointDisconnect"
	TypeGroupJoined        = "groupJoined"
	TypeGroupLeft          = "groupLeft"
	TypeJoin               = "join"
	TypeLeave              = "leave"
)

// SystemSender is the sender id Respoke uses for its own group echoes.
const SystemSender = "__SYSTEM__"

// Event is one of the typed webhook events below.
type Event interface {
	// Type returns the header.type the event was parsed from.
	Type() string
	isEvent()
}

// MessageEvent is an endpoint message addressed to the bot endpoint.
type MessageEvent struct {
	From string
	Body string
}

// PubSubEvent is a message published to a group.
type PubSubEvent struct {
	Channel   string
	From      string
	Timestamp int64
	Body      string
}

// EndpointConnectEvent reports a new endpoint connection.
type EndpointConnectEvent struct {
	EndpointID string
}

// EndpointDisconnectEvent reports a terminated endpoint connection.
type EndpointDisconnectEvent struct {
	EndpointID string
}

// GroupJoinedEvent reports an endpoint joining a group.
type GroupJoinedEvent struct {
	EndpointID string
	Group      string
}

// GroupLeftEvent reports an endpoint leaving a group.
type GroupLeftEvent struct {
	EndpointID string
	Group      string
}

// JoinEvent is the socket-level join notification.
type JoinEvent struct {
	EndpointID string
	Group      string
}

// LeaveEvent is the socket-level leave notification.
type LeaveEvent struct {
	EndpointID string
	Group      string
}

// UnknownEvent carries a header.type the bot does not handle.
type UnknownEvent struct {
	Name string
}

func (MessageEvent) Type() string            { return TypeMessage }
func (PubSubEvent) Type() string             { return TypePubSub }
func (EndpointConnectEvent) Type() string    { return TypeEndpointConnect }
func (EndpointDisconnectEvent) Type() string { return TypeEndpointDisconnect }
func (GroupJoinedEvent) Type() string        { return TypeGroupJoined }
func (GroupLeftEvent) Type() string          { return TypeGroupLeft }
func (JoinEvent) Type() string               { return TypeJoin }
func (LeaveEvent) Type() string              { return TypeLeave }
func (e UnknownEvent) Type() string          { return e.Name }

func (MessageEvent) isEvent()            {}
func (PubSubEvent) isEvent()             {}
func (EndpointConnectEvent) isEvent()    {}
func (EndpointDisconnectEvent) isEvent() {}
func (GroupJoinedEvent) isEvent()        {}
func (GroupLeftEvent) isEvent()          {}
func (JoinEvent) isEvent()               {}
func (LeaveEvent) isEvent()              {}
func (UnknownEvent) isEvent()            {}

// Parse converts a webhook envelope into a typed event. Unrecognized types
// yield an UnknownEvent, not an error.
func Parse(env *models.Envelope) (Event, error) {
	if env == nil || env.Header == nil {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedEnvelope)
	}
	h := env.Header
	if h.Type == "" {
		return nil, fmt.Errorf("%w: missing header.type", ErrMalformedEnvelope)
	}

	endpointID := firstNonEmpty(env.EndpointID, h.EndpointID)
	group := firstNonEmpty(env.Group, h.Group)

	switch h.Type {
	case TypeMessage:
		return MessageEvent{From: h.From, Body: rawText(env.Body)}, nil

	case TypePubSub:
		if h.Channel == "" {
			return nil, fmt.Errorf("%w: pubsub event without header.channel", ErrMalformedEnvelope)
		}
		ts, err := timestamp(h.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return PubSubEvent{
			Channel:   h.Channel,
			From:      h.From,
			Timestamp: ts,
			Body:      rawText(env.Message),
		}, nil

	case TypeEndpointConnect:
		return EndpointConnectEvent{EndpointID: endpointID}, nil
	case TypeEndpointDisconnect:
		return EndpointDisconnectEvent{EndpointID: endpointID}, nil
	case TypeGroupJoined:
		return GroupJoinedEvent{EndpointID: endpointID, Group: group}, nil
	case TypeGroupLeft:
		return GroupLeftEvent{EndpointID: endpointID, Group: group}, nil
	case TypeJoin:
		return JoinEvent{EndpointID: endpointID, Group: group}, nil
	case TypeLeave:
		return LeaveEvent{EndpointID: endpointID, Group: group}, nil
	}

	return UnknownEvent{Name: h.Type}, nil
}

// rawText returns a JSON string's value, or the compact JSON text of any
// other value.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func timestamp(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid header.timestamp %q", n.String())
	}
	return int64(f), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
