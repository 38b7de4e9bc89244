package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

func msg(i int) models.StoredMessage {
	return models.StoredMessage{Timestamp: int64(i), From: "u", Body: fmt.Sprintf("m%d", i)}
}

func TestAppendEvictsOldest(t *testing.T) {
	s := NewHistoryStore(0)

	for i := 0; i <= 50; i++ {
		evicted := s.Append("people", msg(i))
		if evicted != (i == 50) {
			t.Fatalf("append m%d: evicted = %v", i, evicted)
		}
	}

	got := s.Replay("people")
	if len(got) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(got))
	}
	for i, m := range got {
		want := fmt.Sprintf("m%d", i+1)
		if m.Body != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, m.Body)
		}
	}
}

func TestLengthNeverExceedsCapacity(t *testing.T) {
	s := NewHistoryStore(DefaultHistoryCapacity)

	for i := 0; i < 500; i++ {
		s.Append("g", msg(i))
		n := s.Len("g")
		if n > DefaultHistoryCapacity {
			t.Fatalf("after %d appends length is %d", i+1, n)
		}

		got := s.Replay("g")
		if got[len(got)-1].Body != fmt.Sprintf("m%d", i) {
			t.Fatalf("newest message is %s after appending m%d", got[len(got)-1].Body, i)
		}
		if i >= DefaultHistoryCapacity {
			oldest := fmt.Sprintf("m%d", i-DefaultHistoryCapacity+1)
			if got[0].Body != oldest {
				t.Fatalf("oldest retained is %s, expected %s", got[0].Body, oldest)
			}
		}
	}
}

func TestReplayUnknownGroup(t *testing.T) {
	s := NewHistoryStore(0)
	s.Append("other", msg(1))

	got := s.Replay("never-seen")
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected no messages, got %d", len(got))
	}
	if s.Len("never-seen") != 0 {
		t.Fatal("expected zero length for unknown group")
	}
}

func TestReplayReturnsCopy(t *testing.T) {
	s := NewHistoryStore(3)
	s.Append("g", msg(1))

	got := s.Replay("g")
	got[0].Body = "changed"

	if s.Replay("g")[0].Body != "m1" {
		t.Fatal("replay result aliases stored history")
	}
}

func TestGroupsAreIsolated(t *testing.T) {
	s := NewHistoryStore(2)
	s.Append("a", msg(1))
	s.Append("a", msg(2))
	s.Append("a", msg(3))
	s.Append("b", msg(9))

	groups := s.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ID != "a" || groups[0].MessageCount != 2 || groups[0].LastTimestamp != 3 {
		t.Fatalf("unexpected summary for a: %+v", groups[0])
	}
	if groups[1].ID != "b" || groups[1].MessageCount != 1 || groups[1].LastTimestamp != 9 {
		t.Fatalf("unexpected summary for b: %+v", groups[1])
	}
}

func TestConcurrentAppendKeepsBound(t *testing.T) {
	s := NewHistoryStore(0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append("people", msg(w*1000+i))
				_ = s.Replay("people")
			}
		}(w)
	}
	wg.Wait()

	if n := s.Len("people"); n != DefaultHistoryCapacity {
		t.Fatalf("expected %d messages, got %d", DefaultHistoryCapacity, n)
	}
}

func TestEnsureCreatesEmptyGroup(t *testing.T) {
	s := NewHistoryStore(0)
	s.Ensure("quiet")
	s.Ensure("quiet")

	groups := s.Groups()
	if len(groups) != 1 || groups[0].ID != "quiet" || groups[0].MessageCount != 0 {
		t.Fatalf("expected one empty group, got %+v", groups)
	}

	s.Append("quiet", msg(1))
	s.Ensure("quiet")
	if s.Len("quiet") != 1 {
		t.Fatal("Ensure must not reset an existing group")
	}
}
