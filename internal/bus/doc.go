// Package bus implements the in-process change bus.
//
// The bus keeps an explicit registry of subscriptions per topic and
// delivers through a github.com/juju/pubsub/v2 SimpleHub. Every
// subscription owns a hub handler with its own goroutine and unbounded
// pending queue; channel subscriptions forward into a buffered channel.
//
// DELIVERY MODEL:
//
//   - Broadcast: every active subscription on a topic receives every event
//     published to it. Subscriptions never compete for events.
//   - Ordering: publishes are serialised under the registry lock, and the
//     hub calls each handler in publish order, so each subscriber observes
//     its topic in publish order. Nothing is promised across topics.
//   - Isolation: Publish never waits on a consumer. A slow or failing
//     subscriber only grows its own hub queue. Each subscriber receives its
//     own copy of the payload.
//   - No replay: events published before Subscribe, after Cancel, or to a
//     topic with no subscribers are dropped.
//
// Cancellation is best-effort: an event already handed to the channel
// buffer may still be read after Cancel returns.
package bus
