package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"vetski/vetski/services/events"

	"github.com/coder/websocket"
)

func TestBroadcastOnlyReachesConsultation(t *testing.T) {
	h := NewHub()
	a := h.subscribe("c1")
	b := h.subscribe("c2")

	h.Broadcast(Message{Type: TypeTranscriptionUpdated, ConsultationID: "c1", JobID: "j1"})

	select {
	case msg := <-a.ch:
		if msg.JobID != "j1" {
			t.Errorf("unexpected message %+v", msg)
		}
	default:
		t.Fatal("c1 subscriber got nothing")
	}
	select {
	case msg := <-b.ch:
		t.Fatalf("c2 subscriber got %+v", msg)
	default:
	}

	h.unsubscribe("c1", a)
	if h.Subscribers("c1") != 0 {
		t.Errorf("expected no subscribers left")
	}
}

func TestListenRunsHookAndBroadcasts(t *testing.T) {
	h := NewHub()
	bus := events.NewLocalBus()
	var hooked string
	h.OnTranscription = func(_ context.Context, evt events.TranscriptionCompleted) {
		hooked = evt.JobID
	}
	stop, err := h.Listen(bus)
	if err != nil {
		t.Fatal(err)
	}
	defer stop()
	s := h.subscribe("c1")

	bus.PublishTranscription(events.TranscriptionCompleted{ConsultationID: "c1", JobID: "j9", Status: "succeeded"})

	if hooked != "j9" {
		t.Errorf("hook not called, got %q", hooked)
	}
	msg := <-s.ch
	if msg.Type != TypeTranscriptionUpdated || msg.Status != "succeeded" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestServeWritesToWebsocket(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(r.Context(), conn, "c1")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for h.Subscribers("c1") == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	h.Broadcast(Message{Type: TypeTranscriptionUpdated, ConsultationID: "c1", JobID: "j1"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.JobID != "j1" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestTwoHubsShareOneHookRun(t *testing.T) {
	bus := events.NewLocalBus()
	var runs int
	for i := 0; i < 2; i++ {
		h := NewHub()
		h.OnTranscription = func(context.Context, events.TranscriptionCompleted) { runs++ }
		stop, err := h.Listen(bus)
		if err != nil {
			t.Fatal(err)
		}
		defer stop()
	}

	bus.PublishTranscription(events.TranscriptionCompleted{ConsultationID: "c1", JobID: "j1", Status: "succeeded"})

	if runs != 1 {
		t.Errorf("expected the hook to run once for both hubs, got %d", runs)
	}
}
