// Package queue runs background tasks on a single worker.
package queue

import (
	"context"
	"sync"
	"vetski/vetski/utils/logging"

	"go.uber.org/zap"
)

type Task func(context.Context) error

// Queue is bounded; Enqueue never blocks and drops work when full.
type Queue struct {
	mu      sync.Mutex
	closed  bool
	ch      chan keyedTask
	pending map[string]struct{}
}

type keyedTask struct {
	key  string
	task Task
}

func New(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan keyedTask, size), pending: make(map[string]struct{})}
}

// Start runs tasks until ctx is done or the queue is closed and drained.
func (q *Queue) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kt, ok := <-q.ch:
			if !ok {
				return
			}
			q.done(kt.key)
			if kt.task == nil {
				continue
			}
			if err := kt.task(ctx); err != nil {
				logging.ErrorLogger.Error("background task failed", zap.String("key", kt.key), zap.Error(err))
			}
		}
	}
}

func (q *Queue) done(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func (q *Queue) Enqueue(task Task) bool {
	return q.EnqueueKey("", task)
}

// EnqueueKey skips the task when one with the same non-empty key is
// already waiting.
func (q *Queue) EnqueueKey(key string, task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if key != "" {
		if _, ok := q.pending[key]; ok {
			return false
		}
	}
	select {
	case q.ch <- keyedTask{key: key, task: task}:
		if key != "" {
			q.pending[key] = struct{}{}
		}
		return true
	default:
		logging.AppLogger.Warn("background queue full, dropping task", zap.String("key", key))
		return false
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
}
