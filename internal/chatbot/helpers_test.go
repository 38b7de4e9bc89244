package chatbot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
	"github.com/eldtechnologies/respoke-chatbot/internal/store"
)

type sent struct {
	To   string
	Text string
}

// recordingRelay captures outbound messages in call order.
type recordingRelay struct {
	mu       sync.Mutex
	endpoint []sent
	group    []sent
}

func (r *recordingRelay) SendToEndpoint(endpointID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoint = append(r.endpoint, sent{endpointID, text})
}

func (r *recordingRelay) SendToGroup(groupID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.group = append(r.group, sent{groupID, text})
}

func (r *recordingRelay) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoint) + len(r.group)
}

func newTestBot(t *testing.T, opts Options) (*Bot, *store.HistoryStore, *recordingRelay) {
	t.Helper()
	history := store.NewHistoryStore(0)
	relay := &recordingRelay{}
	return New(history, relay, zerolog.Nop(), opts), history, relay
}

// decode builds an envelope from a JSON literal the way the webhook handler does.
func decode(t *testing.T, raw string) *models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return &env
}

func dispatch(t *testing.T, b *Bot, raw string) {
	t.Helper()
	b.Dispatch(context.Background(), decode(t, raw))
}
