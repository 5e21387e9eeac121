package store

import (
	"context"
	"sync"
)

// fanout delivers changes to the in-process subscribers of each key.
// Stores feed it from their own notification source.
type fanout struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Change
	nextID int
	closed bool
}

func newFanout() *fanout {
	return &fanout{subs: make(map[string]map[int]chan Change)}
}

// add registers a subscriber of key until cancel is called or ctx ends
func (f *fanout) add(ctx context.Context, key string) (<-chan Change, func()) {
	ch := make(chan Change, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	if f.subs[key] == nil {
		f.subs[key] = make(map[int]chan Change)
	}
	f.subs[key][id] = ch
	f.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.remove(key, id)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}

func (f *fanout) remove(key string, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.subs[key][id]
	if !ok {
		return
	}
	delete(f.subs[key], id)
	if len(f.subs[key]) == 0 {
		delete(f.subs, key)
	}
	close(ch)
}

// notify never blocks: a subscriber with a pending change already knows the key moved
func (f *fanout) notify(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[c.Key] {
		select {
		case ch <- c:
		default:
		}
	}
}

// notifyAll tells every subscriber its key may have changed
func (f *fanout) notifyAll() {
	f.mu.Lock()
	keys := make([]string, 0, len(f.subs))
	for key := range f.subs {
		keys = append(keys, key)
	}
	f.mu.Unlock()
	for _, key := range keys {
		f.notify(Change{Key: key})
	}
}

// size returns the number of live subscribers
func (f *fanout) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, subs := range f.subs {
		n += len(subs)
	}
	return n
}

// close ends every subscription
func (f *fanout) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for key, subs := range f.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(f.subs, key)
	}
}
