package appointmenttest

import (
	"context"
	"sync"

	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
)

// Locker is an in-process stand-in for the Redis slot locker: a key held by
// one caller makes every other caller fail with ErrLockNotAcquired.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
	keys []string
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

func (l *Locker) WithSlotLock(ctx context.Context, key redisclient.SlotKey, fn func(ctx context.Context) error) error {
	k := key.String()

	l.mu.Lock()
	l.keys = append(l.keys, k)
	if l.held[k] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[k] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, k)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

// Keys lists every key requested so far, in order.
func (l *Locker) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// BusyLocker behaves as if another instance always holds the slot.
type BusyLocker struct{}

func (BusyLocker) WithSlotLock(context.Context, redisclient.SlotKey, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}
