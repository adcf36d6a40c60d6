package dashboard

import "sync"

// Notifier fans out values to subscribers. Each subscriber buffers one value;
// a subscriber which did not consume the previous value only gets the latest one.
type Notifier[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
	skips  int
}

func NewNotifier[T any]() *Notifier[T] {
	return &Notifier[T]{subs: make(map[chan T]struct{})}
}

func (n *Notifier[T]) Subscribe() <-chan T {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan T, 1)
	if n.closed {
		close(ch)
		return ch
	}
	n.subs[ch] = struct{}{}
	return ch
}

func (n *Notifier[T]) CancelSubscription(ch <-chan T) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.subs {
		if c == ch {
			delete(n.subs, c)
			close(c)
			return
		}
	}
}

func (n *Notifier[T]) Publish(v T) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// replace the stale value
		select {
		case <-ch:
			n.skips++
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Skipped returns the number of values replaced before a subscriber read them.
func (n *Notifier[T]) Skipped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.skips
}

func (n *Notifier[T]) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for ch := range n.subs {
		close(ch)
	}
	n.subs = map[chan T]struct{}{}
}
