// Package pubsub distributes backend push events (device state, scene and
// time-task updates, scan results) to in-process subscribers.
package pubsub

import (
	"sync"

	"github.com/lucsky/cuid"
)

// Topic represents a subscription topic.
type Topic string

const (
	TopicLedState     Topic = "LED_STATE"
	TopicLedScene     Topic = "LED_SCENE"
	TopicLedTimeTasks Topic = "LED_TIME_TASKS"
	TopicScan         Topic = "SCAN_RESULT"
	TopicNotice       Topic = "NOTICE"
)

// Subscriber represents a subscription channel.
type Subscriber struct {
	ID      string
	Topic   Topic
	Filter  string // Optional filter value (device id)
	Channel chan interface{}
}

// PubSub manages subscriptions and message distribution.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
}

// New creates a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic][]*Subscriber),
	}
}

// Subscribe creates a new subscription for a topic. A non-empty filter
// limits delivery to messages published for that device id.
func (ps *PubSub) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	sub := &Subscriber{
		ID:      cuid.New(),
		Topic:   topic,
		Filter:  filter,
		Channel: make(chan interface{}, bufferSize),
	}

	ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.subscribers[sub.Topic]
	for i, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			ps.subscribers[sub.Topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends a message to all subscribers of a topic.
// If filter is non-empty, only sends to subscribers with matching filter or
// empty filter. Delivery is non-blocking: a full subscriber drops the message.
// The read lock is held across the sends so Unsubscribe cannot close a
// channel mid-delivery; sends never block, so the hold is brief.
func (ps *PubSub) Publish(topic Topic, filter string, message interface{}) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subscribers[topic] {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- message:
			default:
				// Channel full, skip
			}
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Group bundles subscriptions that share a lifetime, typically one device
// control session. Closing the group closes every member channel, so events
// still in flight for a stale target are dropped instead of applied.
type Group struct {
	mu     sync.Mutex
	ps     *PubSub
	subs   []*Subscriber
	closed bool
}

// NewGroup creates an empty subscription group.
func (ps *PubSub) NewGroup() *Group {
	return &Group{ps: ps}
}

// Subscribe adds a topic subscription to the group. On a closed group it
// returns a subscriber whose channel is already closed.
func (g *Group) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		sub := &Subscriber{ID: cuid.New(), Topic: topic, Filter: filter, Channel: make(chan interface{})}
		close(sub.Channel)
		return sub
	}
	sub := g.ps.Subscribe(topic, filter, bufferSize)
	g.subs = append(g.subs, sub)
	return sub
}

// Close unsubscribes every member. Safe to call more than once.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	for _, sub := range g.subs {
		g.ps.Unsubscribe(sub)
	}
	g.subs = nil
}
