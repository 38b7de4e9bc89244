// Package chatbot routes Respoke webhook events and keeps group history.
package chatbot

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/store"
)

// HistoryCommand is the pubsub body that asks for a replay of the group.
const HistoryCommand = "/history"

// Relay delivers outbound text through Respoke. Calls must not block;
// delivery and its failures are the implementation's concern.
type Relay interface {
	SendToEndpoint(endpointID, text string)
	SendToGroup(groupID, text string)
}

// Hooks are optional callbacks for membership events. A nil hook leaves
// the event logged and otherwise ignored.
type Hooks struct {
	GroupJoined func(ctx context.Context, ev GroupJoinedEvent) error
	GroupLeft   func(ctx context.Context, ev GroupLeftEvent) error
	Join        func(ctx context.Context, ev JoinEvent) error
	Leave       func(ctx context.Context, ev LeaveEvent) error
}

// Options configures a Bot.
type Options struct {
	BotEndpoint string   // defaults to "application"
	BotGroups   []string // defaults to ["robot"]
	PeopleGroup string   // defaults to "people"
	Hooks       Hooks
}

// Bot owns the group history and handles webhook events for the bot endpoint.
type Bot struct {
	history store.History
	relay   Relay
	logger  zerolog.Logger
	opts    Options

	dispatchMu sync.Mutex

	mu           sync.RWMutex
	connectionID string
}

// New creates a Bot that stores group messages in history and replies through relay.
func New(history store.History, relay Relay, logger zerolog.Logger, opts Options) *Bot {
	if opts.BotEndpoint == "" {
		opts.BotEndpoint = "application"
	}
	if len(opts.BotGroups) == 0 {
		opts.BotGroups = []string{"robot"}
	}
	if opts.PeopleGroup == "" {
		opts.PeopleGroup = "people"
	}
	return &Bot{
		history: history,
		relay:   relay,
		logger:  logger.With().Str("component", "chatbot").Logger(),
		opts:    opts,
	}
}

// History returns the store backing the bot.
func (b *Bot) History() store.History {
	return b.history
}

// ConnectionID returns the bot endpoint connection found at bootstrap.
func (b *Bot) ConnectionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connectionID
}

func (b *Bot) setConnectionID(id string) {
	b.mu.Lock()
	b.connectionID = id
	b.mu.Unlock()
}
