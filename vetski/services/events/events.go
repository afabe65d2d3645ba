// Package events fans transcription notifications out to subscribers,
// over NATS when configured and in-process otherwise.
package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
	"vetski/vetski/utils/logging"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectTranscriptionCompleted = "vetski.transcription.completed"

// TranscriptionCompleted is published after a webhook result is stored.
type TranscriptionCompleted struct {
	ConsultationID string    `json:"consultation_id"`
	JobID          string    `json:"job_id"`
	Status         string    `json:"status"`
	SegmentCount   int       `json:"segment_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Handler func(evt TranscriptionCompleted)

// Bus publishes and subscribes to transcription events.
type Bus interface {
	PublishTranscription(evt TranscriptionCompleted) error
	// SubscribeTranscriptions delivers every event to h.
	SubscribeTranscriptions(h Handler) (unsubscribe func(), err error)
	// QueueSubscribeTranscriptions delivers each event to one member of group.
	QueueSubscribeTranscriptions(group string, h Handler) (unsubscribe func(), err error)
	Close()
}

type localSub struct {
	group string
	h     Handler
}

// LocalBus delivers events synchronously to in-process handlers.
type LocalBus struct {
	mu   sync.RWMutex
	next int
	subs map[int]localSub
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

// PublishTranscription calls every plain handler and the lowest-numbered
// handler of each queue group.
func (b *LocalBus) PublishTranscription(evt TranscriptionCompleted) error {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	hs := make([]Handler, 0, len(ids))
	picked := make(map[string]bool)
	for _, id := range ids {
		s := b.subs[id]
		if s.group != "" {
			if picked[s.group] {
				continue
			}
			picked[s.group] = true
		}
		hs = append(hs, s.h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(evt)
	}
	return nil
}

func (b *LocalBus) subscribe(group string, h Handler) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = localSub{group: group, h: h}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *LocalBus) SubscribeTranscriptions(h Handler) (func(), error) {
	return b.subscribe("", h)
}

func (b *LocalBus) QueueSubscribeTranscriptions(group string, h Handler) (func(), error) {
	if group == "" {
		return nil, fmt.Errorf("queue group is required")
	}
	return b.subscribe(group, h)
}

func (b *LocalBus) Close() {}

// NATSBus shares events between every API replica.
type NATSBus struct {
	conn *nats.Conn
}

func NewNATSBus(url string) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("vetski-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.ErrorLogger.Error("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.AppLogger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSBus{conn: nc}, nil
}

func (b *NATSBus) PublishTranscription(evt TranscriptionCompleted) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.conn.Publish(SubjectTranscriptionCompleted, data)
}

func decodeHandler(h Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var evt TranscriptionCompleted
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logging.ErrorLogger.Error("bad transcription event", zap.Error(err))
			return
		}
		h(evt)
	}
}

func (b *NATSBus) SubscribeTranscriptions(h Handler) (func(), error) {
	sub, err := b.conn.Subscribe(SubjectTranscriptionCompleted, decodeHandler(h))
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// QueueSubscribeTranscriptions shares the events of group across replicas,
// so each event is handled by one of them.
func (b *NATSBus) QueueSubscribeTranscriptions(group string, h Handler) (func(), error) {
	sub, err := b.conn.QueueSubscribe(SubjectTranscriptionCompleted, group, decodeHandler(h))
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *NATSBus) Close() {
	b.conn.Drain()
}

// NewBus picks NATS when url is set and falls back to the local bus when the
// server cannot be reached.
func NewBus(url string) Bus {
	if url == "" {
		return NewLocalBus()
	}
	bus, err := NewNATSBus(url)
	if err != nil {
		logging.ErrorLogger.Error("nats unavailable, using in-process events", zap.Error(err))
		return NewLocalBus()
	}
	logging.AppLogger.Info("Connected to NATS", zap.String("url", url))
	return bus
}
