package assistant

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/session"
	"github.com/nvoss/zotassist/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestState(clock session.Clock) *session.State {
	return session.NewState(storage.NewMemoryStorage(), clock, zap.NewNop())
}
