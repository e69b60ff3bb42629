package bus

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/acctql/internal/model"
)

// Subscription is a (topic, listener) registration on a Bus.
type Subscription struct {
	id    string
	topic string
	bus   *Bus

	// unsubscribe detaches the hub handler. Called by the Bus under its
	// registry lock, exactly once.
	unsubscribe func()
	pending     atomic.Int64

	// mu guards out: handlers send under the read lock, stop closes it
	// under the write lock.
	mu     sync.RWMutex
	closed bool
	out    chan model.Event
	done   chan struct{}
	once   sync.Once
}

func newSubscription(b *Bus, id, topic string, buffer int) *Subscription {
	return &Subscription{
		id:    id,
		topic: topic,
		bus:   b,
		out:   make(chan model.Event, buffer),
		done:  make(chan struct{}),
	}
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Events returns the delivery channel. It is closed after the
// subscription is cancelled.
func (s *Subscription) Events() <-chan model.Event {
	return s.out
}

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Backlog returns the number of events published to the subscription but
// not yet handed to its channel or handler. Zero once cancelled.
func (s *Subscription) Backlog() int {
	if s.stopped() {
		return 0
	}
	return int(max(s.pending.Load(), 0))
}

// Cancel is shorthand for Bus.Cancel(s).
func (s *Subscription) Cancel() {
	s.bus.Cancel(s)
}

// send hands ev to the channel, waiting for room unless cancelled.
func (s *Subscription) send(ev model.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.out <- ev:
	case <-s.done:
	}
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// stop closes the subscription. Reports whether this call did the work.
func (s *Subscription) stop() bool {
	stopped := false
	s.once.Do(func() {
		// Closing done first releases a handler blocked in send.
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
		stopped = true
	})
	return stopped
}
