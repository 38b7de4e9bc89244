package chatbot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

func TestPubSubStoresMessage(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})

	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"alice","timestamp":100},"message":"hi"}`)

	got := history.Replay("people")
	want := []models.StoredMessage{{Timestamp: 100, From: "alice", Body: "hi"}}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if relay.total() != 0 {
		t.Fatalf("storing a message should not relay anything, got %d sends", relay.total())
	}
}

func TestHistoryCommandReplaysToSender(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})

	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"alice","timestamp":100},"message":"hi"}`)
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"bob","timestamp":200},"message":"/history"}`)

	if len(relay.endpoint) != 1 {
		t.Fatalf("expected exactly one endpoint message, got %v", relay.endpoint)
	}
	if relay.endpoint[0] != (sent{"bob", "alice: hi"}) {
		t.Fatalf("unexpected replay %v", relay.endpoint[0])
	}
	if len(relay.group) != 0 {
		t.Fatalf("unexpected group messages %v", relay.group)
	}
	if n := history.Len("people"); n != 1 {
		t.Fatalf("history command changed history length to %d", n)
	}
}

func TestHistoryReplayOrderAndScope(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})

	for i := 0; i < 51; i++ {
		dispatch(t, b, fmt.Sprintf(`{"header":{"type":"pubsub","channel":"people","from":"u","timestamp":%d},"message":"m%d"}`, i, i))
	}
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"other","from":"x","timestamp":1},"message":"elsewhere"}`)
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"bob","timestamp":99},"message":"/history"}`)

	if len(relay.endpoint) != 50 {
		t.Fatalf("expected 50 replayed lines, got %d", len(relay.endpoint))
	}
	for i, s := range relay.endpoint {
		want := sent{"bob", fmt.Sprintf("u: m%d", i+1)}
		if s != want {
			t.Fatalf("line %d: expected %v, got %v", i, want, s)
		}
	}
	if history.Len("people") != 50 {
		t.Fatalf("expected 50 stored messages, got %d", history.Len("people"))
	}
}

func TestHistoryForEmptyGroup(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})

	dispatch(t, b, `{"header":{"type":"pubsub","channel":"quiet","from":"bob","timestamp":1},"message":"/history"}`)

	if relay.total() != 0 {
		t.Fatalf("expected no replies for an empty group, got %d", relay.total())
	}
	if history.Len("quiet") != 0 {
		t.Fatal("history command must not be stored")
	}
	groups := history.Groups()
	if len(groups) != 1 || groups[0].ID != "quiet" {
		t.Fatalf("expected the group to exist after a history request, got %+v", groups)
	}
}

func TestSystemMessagesIgnored(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"alice","timestamp":1},"message":"hi"}`)

	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"__SYSTEM__","timestamp":2},"message":"carol just logged on."}`)
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"__SYSTEM__","timestamp":3},"message":"/history"}`)

	if history.Len("people") != 1 {
		t.Fatalf("system messages must not be stored, length %d", history.Len("people"))
	}
	if len(history.Groups()) != 1 {
		t.Fatalf("system messages must not create groups: %v", history.Groups())
	}
	if relay.total() != 0 {
		t.Fatalf("system messages must not be relayed, got %d sends", relay.total())
	}
}

func TestPresenceAnnouncements(t *testing.T) {
	b, history, relay := newTestBot(t, Options{})

	dispatch(t, b, `{"header":{"type":"endpointConnect","endpointId":"carol"}}`)
	dispatch(t, b, `{"header":{"type":"endpointDisconnect"},"endpointId":"carol"}`)

	want := []sent{{"people", "carol just logged on."}, {"people", "carol just logged off."}}
	if len(relay.group) != len(want) {
		t.Fatalf("expected %v, got %v", want, relay.group)
	}
	for i := range want {
		if relay.group[i] != want[i] {
			t.Fatalf("announcement %d: expected %v, got %v", i, want[i], relay.group[i])
		}
	}
	if len(relay.endpoint) != 0 || len(history.Groups()) != 0 {
		t.Fatal("presence events must not touch history or endpoints")
	}
}

func TestPresenceUsesConfiguredGroup(t *testing.T) {
	b, _, relay := newTestBot(t, Options{PeopleGroup: "lobby"})

	dispatch(t, b, `{"header":{"type":"endpointConnect","endpointId":"carol"}}`)

	if len(relay.group) != 1 || relay.group[0].To != "lobby" {
		t.Fatalf("expected announcement to lobby, got %v", relay.group)
	}
}

func TestDroppedEventsDoNotRelay(t *testing.T) {
	events := []string{
		`{"header":{"type":"somethingNew","from":"alice"}}`,
		`{"header":{"from":"alice"},"message":"no type"}`,
		`{"message":"no header"}`,
		`{"header":{"type":"pubsub","from":"alice"},"message":"no channel"}`,
		`{"header":{"type":"endpointConnect"}}`,
		`{"header":{"type":"message","from":"alice"},"body":"hello"}`,
		`{"header":{"type":"groupJoined"},"endpointId":"dave","group":"people"}`,
		`{"header":{"type":"groupLeft"},"endpointId":"dave","group":"people"}`,
		`{"header":{"type":"join"},"endpointId":"dave","group":"people"}`,
		`{"header":{"type":"leave"},"endpointId":"dave","group":"people"}`,
	}

	for _, raw := range events {
		b, history, relay := newTestBot(t, Options{})
		dispatch(t, b, raw)
		if relay.total() != 0 {
			t.Fatalf("%s: expected no relay, got %d", raw, relay.total())
		}
		if len(history.Groups()) != 0 {
			t.Fatalf("%s: expected no history, got %v", raw, history.Groups())
		}
	}
}

func TestDispatchNilEnvelope(t *testing.T) {
	b, _, relay := newTestBot(t, Options{})
	b.Dispatch(context.Background(), nil)
	if relay.total() != 0 {
		t.Fatal("nil envelope should be dropped")
	}
}

func TestGroupJoinedHook(t *testing.T) {
	var got []GroupJoinedEvent
	b, _, relay := newTestBot(t, Options{Hooks: Hooks{
		GroupJoined: func(ctx context.Context, ev GroupJoinedEvent) error {
			got = append(got, ev)
			return nil
		},
	}})

	dispatch(t, b, `{"header":{"type":"groupJoined"},"endpointId":"dave","group":"people"}`)

	if len(got) != 1 || got[0] != (GroupJoinedEvent{EndpointID: "dave", Group: "people"}) {
		t.Fatalf("unexpected hook calls %v", got)
	}
	if relay.total() != 0 {
		t.Fatal("group joined has no default replay")
	}
}

func TestHookFailuresAreContained(t *testing.T) {
	b, history, _ := newTestBot(t, Options{Hooks: Hooks{
		GroupLeft: func(ctx context.Context, ev GroupLeftEvent) error {
			return errors.New("boom")
		},
		Leave: func(ctx context.Context, ev LeaveEvent) error {
			panic("hook exploded")
		},
	}})

	dispatch(t, b, `{"header":{"type":"groupLeft"},"endpointId":"dave","group":"people"}`)
	dispatch(t, b, `{"header":{"type":"leave"},"endpointId":"dave","group":"people"}`)

	// The bot keeps working after both failures.
	dispatch(t, b, `{"header":{"type":"pubsub","channel":"people","from":"alice","timestamp":1},"message":"still here"}`)
	if history.Len("people") != 1 {
		t.Fatal("dispatch stopped working after a failing hook")
	}
}

func TestEventIDContext(t *testing.T) {
	ctx := WithEventID(context.Background(), "evt-1")
	if got := eventIDFrom(ctx); got != "evt-1" {
		t.Fatalf("expected evt-1, got %q", got)
	}
	if got := eventIDFrom(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
