// Package realtime pushes consultation updates to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"
	"vetski/vetski/services/events"
	"vetski/vetski/utils/logging"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Message is what a subscribed client receives.
type Message struct {
	Type           string `json:"type"`
	ConsultationID string `json:"consultation_id"`
	JobID          string `json:"job_id,omitempty"`
	Status         string `json:"status,omitempty"`
	Text           string `json:"text,omitempty"`
}

const (
	TypeTranscriptionUpdated = "transcription.updated"
	TypeTranscriptSynced     = "transcript.synced"
)

type subscriber struct {
	ch chan Message
}

// Hub tracks websocket subscribers per consultation.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
	// OnTranscription runs once per event across all replicas sharing
	// WorkerGroup on the bus.
	OnTranscription func(ctx context.Context, evt events.TranscriptionCompleted)
}

// WorkerGroup is the bus queue group OnTranscription subscribes with.
const WorkerGroup = "vetski-injector"

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Listen forwards bus events to local subscribers and runs OnTranscription
// on the shared worker group, until the returned func is called. The hook
// subscription is made first so it runs before the local fan-out on an
// in-process bus.
func (h *Hub) Listen(bus events.Bus) (func(), error) {
	stopWork := func() {}
	if h.OnTranscription != nil {
		hook := h.OnTranscription
		stop, err := bus.QueueSubscribeTranscriptions(WorkerGroup, func(evt events.TranscriptionCompleted) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			hook(ctx, evt)
		})
		if err != nil {
			return nil, err
		}
		stopWork = stop
	}
	stopFanOut, err := bus.SubscribeTranscriptions(func(evt events.TranscriptionCompleted) {
		h.Broadcast(Message{
			Type:           TypeTranscriptionUpdated,
			ConsultationID: evt.ConsultationID,
			JobID:          evt.JobID,
			Status:         evt.Status,
		})
	})
	if err != nil {
		stopWork()
		return nil, err
	}
	return func() {
		stopFanOut()
		stopWork()
	}, nil
}

func (h *Hub) subscribe(consultationID string) *subscriber {
	s := &subscriber{ch: make(chan Message, 16)}
	h.mu.Lock()
	if h.subs[consultationID] == nil {
		h.subs[consultationID] = make(map[*subscriber]struct{})
	}
	h.subs[consultationID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(consultationID string, s *subscriber) {
	h.mu.Lock()
	delete(h.subs[consultationID], s)
	if len(h.subs[consultationID]) == 0 {
		delete(h.subs, consultationID)
	}
	h.mu.Unlock()
}

// Subscribers reports how many clients watch a consultation.
func (h *Hub) Subscribers(consultationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[consultationID])
}

// Broadcast delivers msg to every subscriber of its consultation. Slow
// subscribers drop the message instead of blocking the sender.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[msg.ConsultationID] {
		select {
		case s.ch <- msg:
		default:
			logging.AppLogger.Warn("dropping realtime message for slow subscriber",
				zap.String("consultation_id", msg.ConsultationID))
		}
	}
}

// Serve streams messages for consultationID to conn until either side closes.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, consultationID string) {
	defer conn.Close(websocket.StatusInternalError, "internal error")
	s := h.subscribe(consultationID)
	defer h.unsubscribe(consultationID, s)

	// CloseRead handles pings and cancels ctx when the client goes away.
	ctx = conn.CloseRead(ctx)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-s.ch:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logging.ErrorLogger.Error("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
