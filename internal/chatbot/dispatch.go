package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/metrics"
	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

type contextKey string

const eventIDKey contextKey = "event_id"

// WithEventID attaches a delivery id that Dispatch adds to its log lines.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

func eventIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey).(string)
	return id
}

// Dispatch handles one webhook delivery. It never fails from the caller's
// point of view: malformed envelopes, unknown types and handler errors are
// logged and the event is dropped. Deliveries are handled one at a time.
func (b *Bot) Dispatch(ctx context.Context, env *models.Envelope) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	logger := b.logger.With().Str("event_id", eventIDFrom(ctx)).Logger()

	if err := b.dispatch(ctx, logger, env); err != nil {
		reason := "handler"
		switch {
		case errors.Is(err, ErrMalformedEnvelope):
			reason = "malformed"
		case errors.Is(err, errPanic):
			reason = "panic"
		}
		metrics.DispatchFailures.WithLabelValues(reason).Inc()
		logger.Warn().Err(err).Str("reason", reason).Msg("webhook event dropped")
	}
}

var errPanic = errors.New("event handler panicked")

func (b *Bot) dispatch(ctx context.Context, logger zerolog.Logger, env *models.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	ev, err := Parse(env)
	if err != nil {
		return err
	}

	switch e := ev.(type) {
	case MessageEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		logger.Debug().Str("from", e.From).Str("body", e.Body).Msg("endpoint message")
		return nil

	case PubSubEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		return b.handlePubSub(logger, e)

	case EndpointConnectEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		logger.Debug().Str("endpoint", e.EndpointID).Msg("endpoint connected")
		return b.announce(e.EndpointID, "logged on")

	case EndpointDisconnectEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		logger.Debug().Str("endpoint", e.EndpointID).Msg("endpoint disconnected")
		return b.announce(e.EndpointID, "logged off")

	// Membership events have no built-in behavior. Replaying history to new
	// group members is intended but not yet decided; see Hooks.GroupJoined.
	case GroupJoinedEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		logger.Debug().Str("endpoint", e.EndpointID).Str("group", e.Group).Msg("endpoint joined group")
		if h := b.opts.Hooks.GroupJoined; h != nil {
			return h(ctx, e)
		}
		return nil

	case GroupLeftEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		logger.Debug().Str("endpoint", e.EndpointID).Str("group", e.Group).Msg("endpoint left group")
		if h := b.opts.Hooks.GroupLeft; h != nil {
			return h(ctx, e)
		}
		return nil

	case JoinEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		if h := b.opts.Hooks.Join; h != nil {
			return h(ctx, e)
		}
		return nil

	case LeaveEvent:
		metrics.WebhookEvents.WithLabelValues(e.Type()).Inc()
		if h := b.opts.Hooks.Leave; h != nil {
			return h(ctx, e)
		}
		return nil

	case UnknownEvent:
		metrics.WebhookEvents.WithLabelValues("unknown").Inc()
		logger.Info().Str("type", e.Name).Msg("unrecognized event")
		return nil

	default:
		return fmt.Errorf("no handler for %T", ev)
	}
}

func (b *Bot) handlePubSub(logger zerolog.Logger, e PubSubEvent) error {
	logger.Debug().
		Str("group", e.Channel).
		Str("from", e.From).
		Str("body", e.Body).
		Msg("group message")

	// Respoke echoes its own announcements back; they are not user content.
	if e.From == SystemSender {
		return nil
	}

	// The group exists from its first message, history requests included.
	b.history.Ensure(e.Channel)

	if e.Body == HistoryCommand {
		return b.replay(logger, e.Channel, e.From)
	}

	evicted := b.history.Append(e.Channel, models.StoredMessage{
		Timestamp: e.Timestamp,
		From:      e.From,
		Body:      e.Body,
	})
	metrics.HistoryAppends.Inc()
	if evicted {
		metrics.HistoryEvictions.Inc()
	}
	return nil
}

// replay sends every stored message of group to endpointID, oldest first.
func (b *Bot) replay(logger zerolog.Logger, group, endpointID string) error {
	if endpointID == "" {
		return errors.New("history requested without header.from")
	}

	messages := b.history.Replay(group)
	metrics.HistoryReplays.Inc()
	logger.Debug().
		Str("group", group).
		Str("to", endpointID).
		Int("messages", len(messages)).
		Msg("replaying history")

	for _, m := range messages {
		b.relay.SendToEndpoint(endpointID, FormatLine(m))
	}
	return nil
}

func (b *Bot) announce(endpointID, action string) error {
	if endpointID == "" {
		return fmt.Errorf("%w: presence event without endpointId", ErrMalformedEnvelope)
	}
	b.relay.SendToGroup(b.opts.PeopleGroup, endpointID+" just "+action+".")
	return nil
}

// FormatLine renders a stored message the way it is replayed.
func FormatLine(m models.StoredMessage) string {
	return m.From + ": " + m.Body
}
