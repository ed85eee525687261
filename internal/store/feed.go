package store

import (
	"sync"

	"github.com/Seeker14491/distancelog/internal/changelist"
)

// feedBufferSize is the per-subscriber channel buffer.
const feedBufferSize = 100

// Feed fans newly appended changelist entries out to subscribers.
//
// Subscribers receive entries via buffered channels (buffer size 100).
// Publishing never blocks: if a subscriber's buffer is full, the entry is
// dropped for that subscriber. The changelist itself stays the source of
// truth; the feed is best-effort.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[chan changelist.Entry]struct{}
}

// NewFeed creates a [Feed] with no subscribers.
func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[chan changelist.Entry]struct{}),
	}
}

// Publish sends each entry, in order, to every subscriber.
func (f *Feed) Publish(entries []changelist.Entry) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, e := range entries {
		for ch := range f.subscribers {
			select {
			case ch <- e:
			default:
				// subscriber is slow, drop the entry
			}
		}
	}
}

// Subscribe returns a channel that receives published entries.
//
// Caller must call [Feed.Unsubscribe] when done to prevent resource leaks.
func (f *Feed) Subscribe() <-chan changelist.Entry {
	ch := make(chan changelist.Entry, feedBufferSize)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (f *Feed) Unsubscribe(ch <-chan changelist.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subCh := range f.subscribers {
		if subCh == ch {
			delete(f.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Subscribers returns the current number of subscribers.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
