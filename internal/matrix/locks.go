package matrix

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockSet hands out named exclusive locks. Locks are always taken in sorted
// order, which Registry.Locks guarantees, so two jobs cannot deadlock.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func newLockSet() *lockSet {
	return &lockSet{locks: map[string]*semaphore.Weighted{}}
}

func (l *lockSet) get(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[name]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[name] = sem
	}
	return sem
}

// acquire takes every named lock and returns the function releasing them.
func (l *lockSet) acquire(ctx context.Context, names []string) (func(), error) {
	held := make([]*semaphore.Weighted, 0, len(names))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}
	for _, name := range names {
		sem := l.get(name)
		if err := sem.Acquire(ctx, 1); err != nil {
			release()
			return nil, err
		}
		held = append(held, sem)
	}
	return release, nil
}
