package services

import (
	"sync"
	"sync/atomic"
)

// LiveFeed fans the registration total out to in-process observers.
// Each subscriber holds at most one pending value; a slow reader only ever
// sees the latest total and Publish never blocks.
type LiveFeed struct {
	mu      sync.Mutex
	subs    map[uint64]chan int64
	nextID  uint64
	last    int64
	hasLast bool
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{subs: make(map[uint64]chan int64)}
}

// Publish delivers total to every subscriber. Totals at or below the last
// published value are dropped, so repeated or reordered deliveries from
// several sources are harmless.
func (f *LiveFeed) Publish(total int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hasLast && total <= f.last {
		return
	}
	f.last, f.hasLast = total, true

	for _, ch := range f.subs {
		select {
		case ch <- total:
		default:
			// replace the stale pending value
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- total:
			default:
			}
		}
	}
}

// Latest returns the last published total
func (f *LiveFeed) Latest() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.hasLast
}

// Subscribe registers a channel observer. The returned function removes it
// and closes the channel; calling it more than once is a no-op.
func (f *LiveFeed) Subscribe() (<-chan int64, func()) {
	ch := make(chan int64, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
}

// SubscribeFunc calls onUpdate for each delivered total on its own goroutine
// until the returned unsubscribe function is called. Unsubscribe waits for a
// running callback to return, so it must not be called from onUpdate.
func (f *LiveFeed) SubscribeFunc(onUpdate func(total int64)) func() {
	ch, unsubscribe := f.Subscribe()
	var stopped atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for total := range ch {
			if stopped.Load() {
				return
			}
			onUpdate(total)
		}
	}()
	return func() {
		stopped.Store(true)
		unsubscribe()
		<-done
	}
}

// SubscriberCount is the number of live subscriptions
func (f *LiveFeed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
