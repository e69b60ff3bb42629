package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/juju/pubsub/v2"

	"github.com/roach88/acctql/internal/model"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("bus closed")

// DefaultBufferSize is the default capacity of a subscription channel.
// Events beyond it wait in the subscriber's hub queue.
const DefaultBufferSize = 64

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the channel capacity of new subscriptions.
// Values below 0 are treated as 0 (unbuffered).
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		b.bufferSize = max(n, 0)
	}
}

// WithClock sets the sequencer used to stamp events.
func WithClock(c Sequencer) Option {
	return func(b *Bus) {
		b.clock = c
	}
}

// WithIDGenerator sets the subscription ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Bus) {
		b.ids = g
	}
}

// WithLogger sets the bus logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// Bus routes published events to every subscription on the event topic.
//
// Delivery runs on a pubsub.SimpleHub: each subscription has its own hub
// goroutine and pending queue. The Bus adds the topic registry, seq
// stamping and event ids on top.
//
// Thread-safety: Publish, Subscribe, Cancel and Close are safe for
// concurrent use.
type Bus struct {
	mu     sync.Mutex
	hub    *pubsub.SimpleHub
	topics map[string]map[string]*Subscription
	closed bool

	clock      Sequencer
	ids        IDGenerator
	bufferSize int
	logger     *slog.Logger

	published atomic.Int64
	dropped   atomic.Int64
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics:     make(map[string]map[string]*Subscription),
		clock:      NewClock(),
		ids:        UUIDv7Generator{},
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.hub = pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
		Logger: hubLogger{b.logger},
	})
	return b
}

// Publish stamps an event and queues it for every subscription on topic.
//
// Publish does not wait for delivery. Hub publishes are serialised under
// the registry lock, so a later Publish on the same topic is always
// delivered after this one.
//
// The payload must be canonical-JSON-safe (see model.MarshalCanonical);
// otherwise nothing is delivered and an error is returned. The bus keeps
// its own copy of payload, and each subscriber receives a separate copy.
func (b *Bus) Publish(topic string, kind model.EventKind, payload map[string]any) (model.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return model.Event{}, ErrClosed
	}

	seq := b.clock.Next()
	id, err := model.EventID(topic, seq, kind, payload)
	if err != nil {
		return model.Event{}, fmt.Errorf("publish %s: %w", topic, err)
	}
	ev := model.Event{ID: id, Topic: topic, Seq: seq, Kind: kind, Payload: payload}
	b.published.Add(1)

	subs := b.topics[topic]
	if len(subs) == 0 {
		b.dropped.Add(1)
		b.logger.Debug("event dropped, no subscribers", "topic", topic, "seq", seq, "kind", kind)
		return ev, nil
	}
	for _, sub := range subs {
		sub.pending.Add(1)
	}
	shared := ev
	shared.Payload = model.ClonePayload(payload)
	b.hub.Publish(topic, shared)
	b.logger.Debug("event published", "topic", topic, "seq", seq, "kind", kind, "subscribers", len(subs))
	return ev, nil
}

// Subscribe registers a new subscription on topic whose events arrive on
// Events(). Only events published after Subscribe returns are delivered.
func (b *Bus) Subscribe(topic string) (*Subscription, error) {
	return b.subscribe(topic, func(s *Subscription) func(model.Event) {
		return s.send
	})
}

// subscribe registers a subscription whose events are passed to the
// handler built by handle. The handler runs on the subscription's hub
// goroutine, one event at a time.
func (b *Bus) subscribe(topic string, handle func(*Subscription) func(model.Event)) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := newSubscription(b, b.ids.Generate(), topic, b.bufferSize)
	handler := handle(sub)
	sub.unsubscribe = b.hub.Subscribe(topic, func(_ string, data interface{}) {
		defer sub.pending.Add(-1)
		ev, ok := data.(model.Event)
		if !ok || sub.stopped() {
			return
		}
		ev.Payload = model.ClonePayload(ev.Payload)
		handler(ev)
	})

	subs := b.topics[topic]
	if subs == nil {
		subs = make(map[string]*Subscription)
		b.topics[topic] = subs
	}
	subs[sub.id] = sub

	b.logger.Debug("subscribed", "topic", topic, "subscription", sub.id)
	return sub, nil
}

// SubscribeContext subscribes to topic and cancels the subscription when
// ctx ends, e.g. when the owning connection terminates.
func (b *Bus) SubscribeContext(ctx context.Context, topic string) (*Subscription, error) {
	sub, err := b.Subscribe(topic)
	if err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			b.Cancel(sub)
		case <-sub.done:
		}
	}()
	return sub, nil
}

// SubscribeFunc subscribes to topic and calls fn for each event on the
// subscription's own goroutine. A panic in fn is logged and the
// subscription keeps receiving; other subscribers are never affected.
// Events() of the returned subscription is never fed.
func (b *Bus) SubscribeFunc(topic string, fn func(model.Event)) (*Subscription, error) {
	return b.subscribe(topic, func(s *Subscription) func(model.Event) {
		return func(ev model.Event) { b.deliver(s, ev, fn) }
	})
}

func (b *Bus) deliver(sub *Subscription, ev model.Event, fn func(model.Event)) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber handler panicked",
				"topic", sub.topic, "subscription", sub.id, "seq", ev.Seq, "panic", r)
		}
	}()
	fn(ev)
}

// Cancel removes sub from the registry and stops its delivery.
// Cancelling twice, or after Close, is a no-op.
func (b *Bus) Cancel(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if subs, ok := b.topics[sub.topic]; ok && subs[sub.id] == sub {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
		sub.unsubscribe()
	}
	b.mu.Unlock()

	if sub.stop() {
		b.logger.Debug("subscription cancelled", "topic", sub.topic, "subscription", sub.id)
	}
}

// SubscriberCount returns the number of active subscriptions on topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Stats reports totals since the bus was created.
type Stats struct {
	Published int64 // events stamped by Publish
	Dropped   int64 // events published to a topic with no subscribers
}

// Stats returns publish counters.
func (b *Bus) Stats() Stats {
	return Stats{Published: b.published.Load(), Dropped: b.dropped.Load()}
}

// Close cancels every subscription and rejects further use.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*Subscription
	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.unsubscribe()
			all = append(all, sub)
		}
	}
	b.topics = make(map[string]map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
	b.logger.Debug("bus closed", "subscriptions", len(all))
}
