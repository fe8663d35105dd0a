package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/service"
	"github.com/stretchr/testify/require"
)

// userListQuerier serves only the broadcast roster; the embedded
// interface panics if the worker reaches anything else.
type userListQuerier struct {
	service.Querier
	users []models.User
}

func (q *userListQuerier) ListBroadcastUsers(ctx context.Context) ([]models.User, error) {
	return q.users, nil
}

type userListStore struct{ q *userListQuerier }

func (s *userListStore) Queries() service.Querier { return s.q }
func (s *userListStore) RunInTx(ctx context.Context, fn func(q service.Querier) error) error {
	return fn(s.q)
}

type collectSender struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail map[int64]bool
}

func (c *collectSender) Send(ctx context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[msg.ChatID] {
		return context.DeadlineExceeded
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collectSender) sent() []notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func TestBroadcastDeliversToAllOptedIn(t *testing.T) {
	store := &userListStore{q: &userListQuerier{users: []models.User{
		{ID: 1, ChatID: 100, BcastStatus: true},
		{ID: 2, ChatID: 200, BcastStatus: true},
		{ID: 3, ChatID: 300, BcastStatus: true},
	}}}
	sender := &collectSender{}
	b := NewBroadcaster(store, sender, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	require.True(t, b.Enqueue("maintenance tonight"))

	require.Eventually(t, func() bool {
		return len(sender.sent()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	for _, msg := range sender.sent() {
		require.Equal(t, "maintenance tonight", msg.Text)
	}

	cancel()
	<-done
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	store := &userListStore{q: &userListQuerier{users: []models.User{
		{ID: 1, ChatID: 100, BcastStatus: true},
		{ID: 2, ChatID: 200, BcastStatus: true},
		{ID: 3, ChatID: 300, BcastStatus: true},
	}}}
	sender := &collectSender{fail: map[int64]bool{200: true}}
	b := NewBroadcaster(store, sender, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	require.True(t, b.Enqueue("hello"))

	require.Eventually(t, func() bool {
		return len(sender.sent()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	chats := map[int64]bool{}
	for _, msg := range sender.sent() {
		chats[msg.ChatID] = true
	}
	require.True(t, chats[100])
	require.True(t, chats[300])
	require.False(t, chats[200])
}

func TestEnqueueFullQueue(t *testing.T) {
	store := &userListStore{q: &userListQuerier{}}
	b := NewBroadcaster(store, &collectSender{}, time.Millisecond)

	// Worker not running: fill the buffer.
	for i := 0; i < cap(b.jobs); i++ {
		require.True(t, b.Enqueue("x"))
	}
	require.False(t, b.Enqueue("overflow"))
}
