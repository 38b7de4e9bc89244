package respoke

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMaintainAttachesAndDetachesSocket(t *testing.T) {
	url, _, _ := newSocketServer(t, nil)
	outbox := NewOutbox(1, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Maintain(ctx, url, "secret", outbox, zerolog.Nop())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !outbox.SocketConnected() {
		if time.Now().After(deadline) {
			t.Fatal("socket was never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Maintain did not return after cancel")
	}
	if outbox.SocketConnected() {
		t.Fatal("expected socket to be detached")
	}
}
