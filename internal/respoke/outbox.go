package respoke

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
)

// SocketSender is the subset of Socket the outbox needs.
type SocketSender interface {
	Connected() bool
	SendEndpointMessage(to, message string) error
	SendGroupMessage(group, message string) error
}

// GroupPublisher publishes group messages over HTTPS.
type GroupPublisher interface {
	PublishGroupMessage(ctx context.Context, group, message string) error
}

const (
	targetEndpoint = "endpoint"
	targetGroup    = "group"
)

type outbound struct {
	target string
	to     string
	text   string
}

// Outbox queues bot replies and delivers them in order from a single
// worker. Enqueueing never blocks; a full queue drops the message.
// Failed deliveries are logged, not retried.
type Outbox struct {
	queue   chan outbound
	rest    GroupPublisher
	logger  zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	socket SocketSender
}

// NewOutbox creates an outbox holding up to size pending messages. rest
// may be nil, in which case group messages need the socket too.
func NewOutbox(size int, rest GroupPublisher, logger zerolog.Logger) *Outbox {
	if size <= 0 {
		size = 256
	}
	return &Outbox{
		queue:   make(chan outbound, size),
		rest:    rest,
		logger:  logger.With().Str("component", "outbox").Logger(),
		timeout: 10 * time.Second,
	}
}

// SetSocket swaps the socket used for delivery. nil detaches it.
func (o *Outbox) SetSocket(s SocketSender) {
	o.mu.Lock()
	o.socket = s
	o.mu.Unlock()
}

func (o *Outbox) currentSocket() SocketSender {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.socket == nil || !o.socket.Connected() {
		return nil
	}
	return o.socket
}

// SocketConnected reports whether a live socket is attached.
func (o *Outbox) SocketConnected() bool {
	return o.currentSocket() != nil
}

// SendToEndpoint queues a direct message to endpointID.
func (o *Outbox) SendToEndpoint(endpointID, text string) {
	o.enqueue(outbound{target: targetEndpoint, to: endpointID, text: text})
}

// SendToGroup queues a message to every member of groupID.
func (o *Outbox) SendToGroup(groupID, text string) {
	o.enqueue(outbound{target: targetGroup, to: groupID, text: text})
}

// Pending returns the number of queued messages.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

func (o *Outbox) enqueue(m outbound) {
	select {
	case o.queue <- m:
	default:
		metrics.RelayMessages.WithLabelValues(m.target, "dropped").Inc()
		o.logger.Warn().
			Str("target", m.target).
			Str("to", m.to).
			Msg("outbox full, message dropped")
	}
}

// Run delivers queued messages until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-o.queue:
			o.deliver(ctx, m)
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, m outbound) {
	err := o.send(ctx, m)
	if err != nil {
		metrics.RelayMessages.WithLabelValues(m.target, "failed").Inc()
		o.logger.Warn().
			Err(err).
			Str("target", m.target).
			Str("to", m.to).
			Msg("relay failed")
		return
	}
	metrics.RelayMessages.WithLabelValues(m.target, "sent").Inc()
}

func (o *Outbox) send(ctx context.Context, m outbound) error {
	socket := o.currentSocket()

	if m.target == targetEndpoint {
		if socket == nil {
			return ErrNotConnected
		}
		return socket.SendEndpointMessage(m.to, m.text)
	}

	if socket != nil {
		return socket.SendGroupMessage(m.to, m.text)
	}
	if o.rest == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.rest.PublishGroupMessage(ctx, m.to, m.text)
}
