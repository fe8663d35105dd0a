package worker

import (
	"context"
	"time"

	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
	"github.com/altynbek07/invbot/internal/service"
	"go.uber.org/zap"
)

// Broadcaster fans a message out to every opted-in user, paced by a
// fixed inter-message pause so chat platform rate limits are never hit.
// Delivery is best-effort: failures are logged and the run continues.
type Broadcaster struct {
	store  service.QueryStore
	sender notify.Sender
	pause  time.Duration

	jobs chan string
}

func NewBroadcaster(store service.QueryStore, sender notify.Sender, pause time.Duration) *Broadcaster {
	if pause <= 0 {
		pause = 50 * time.Millisecond
	}
	return &Broadcaster{
		store:  store,
		sender: sender,
		pause:  pause,
		jobs:   make(chan string, 16),
	}
}

// Enqueue schedules a broadcast. Returns false when the queue is full.
func (b *Broadcaster) Enqueue(text string) bool {
	select {
	case b.jobs <- text:
		observability.SetBroadcastQueueSize(len(b.jobs))
		return true
	default:
		zap.L().Warn("broadcast queue full, message dropped")
		return false
	}
}

// Run processes queued broadcasts until the context is cancelled.
// Call in its own goroutine; it returns once drained or cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	zap.L().Info("broadcast worker started", zap.Duration("pause", b.pause))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("broadcast worker stopped")
			return
		case text := <-b.jobs:
			observability.SetBroadcastQueueSize(len(b.jobs))
			b.broadcast(ctx, text)
		}
	}
}

func (b *Broadcaster) broadcast(ctx context.Context, text string) {
	users, err := b.store.Queries().ListBroadcastUsers(ctx)
	if err != nil {
		zap.L().Error("list broadcast users failed", zap.Error(err))
		return
	}
	zap.L().Info("broadcast started", zap.Int("recipients", len(users)))

	sent := 0
	for i := range users {
		if ctx.Err() != nil {
			zap.L().Warn("broadcast interrupted", zap.Int("sent", sent), zap.Int("total", len(users)))
			return
		}
		msg := notify.Message{ChatID: users[i].ChatID, Text: text}
		if err := b.sender.Send(ctx, msg); err != nil {
			zap.L().Warn("broadcast delivery failed",
				zap.Int64("chat_id", users[i].ChatID),
				zap.Error(err),
			)
		} else {
			sent++
		}

		select {
		case <-ctx.Done():
		case <-time.After(b.pause):
		}
	}
	zap.L().Info("broadcast finished", zap.Int("sent", sent), zap.Int("total", len(users)))
}
