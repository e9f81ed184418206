package store

import (
	"context"
	"sync"
)

// Feed carries "something changed" notifications between writers and
// subscribers.
type Feed interface {
	Notify(ctx context.Context) error
	Subscribe(ctx context.Context, onChange func()) (Subscription, error)
}

// listener runs a subscriber callback on its own goroutine. Notifications that
// arrive while one is pending are coalesced, which is safe because every
// subscriber reloads the full table.
type listener struct {
	onChange func()
	pending  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newListener(onChange func()) *listener {
	l := &listener{
		onChange: onChange,
		pending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.pending:
			select {
			case <-l.done:
				return
			default:
			}
			l.onChange()
		}
	}
}

func (l *listener) signal() {
	select {
	case l.pending <- struct{}{}:
	default:
	}
}

func (l *listener) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Broadcaster is an in-process Feed used by the memory and SQLite gateways and
// behind the Postgres gateway's shared LISTEN connection.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[int]*listener
	nextID    int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]*listener)}
}

func (b *Broadcaster) Notify(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.listeners {
		l.signal()
	}
	return nil
}

func (b *Broadcaster) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[id] = newListener(onChange)
	return &broadcastSubscription{broadcaster: b, id: id}, nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.listeners[id]; ok {
		l.stop()
		delete(b.listeners, id)
	}
}

type broadcastSubscription struct {
	broadcaster *Broadcaster
	id          int
	once        sync.Once
}

func (s *broadcastSubscription) Unsubscribe() error {
	s.once.Do(func() { s.broadcaster.remove(s.id) })
	return nil
}
