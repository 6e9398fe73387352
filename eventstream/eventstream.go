// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package eventstream fans host lifecycle events out to in-process subscribers.
package eventstream

import (
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// Stream is a topic based, in-memory broker.
type Stream interface {
	// AddSubscriber creates and registers a subscriber.
	AddSubscriber() Subscriber
	// RemoveSubscriber unsubscribes the subscriber from all its topics and shuts it down.
	RemoveSubscriber(sub Subscriber)
	// SubscribersCount returns the number of subscribers of a topic.
	SubscribersCount(topic string) int
	// Subscribe attaches a subscriber to a topic. Inactive subscribers are ignored.
	Subscribe(sub Subscriber, topic string)
	// Unsubscribe detaches a subscriber from a topic.
	Unsubscribe(sub Subscriber, topic string)
	// Publish delivers a payload to every subscriber of the topic.
	Publish(topic string, payload any)
	// Broadcast publishes the same payload on several topics.
	Broadcast(payload any, topics []string)
	// Topics returns the topics that currently have subscribers.
	Topics() []string
	// Close shuts every subscriber down. Publishing afterwards is a no-op.
	Close()
}

// EventsStream is the default Stream implementation.
type EventsStream struct {
	subsMu      sync.RWMutex
	subscribers map[string]Subscriber

	topicsMu sync.RWMutex
	topics   map[string]map[string]Subscriber

	closed *atomic.Bool
}

var _ Stream = (*EventsStream)(nil)

// New creates an instance of EventsStream.
func New() Stream {
	return &EventsStream{
		subscribers: make(map[string]Subscriber),
		topics:      make(map[string]map[string]Subscriber),
		closed:      atomic.NewBool(false),
	}
}

func (b *EventsStream) AddSubscriber() Subscriber {
	sub := newSubscriber()
	if b.closed.Load() {
		sub.Shutdown()
		return sub
	}
	b.subsMu.Lock()
	b.subscribers[sub.ID()] = sub
	b.subsMu.Unlock()
	return sub
}

func (b *EventsStream) RemoveSubscriber(sub Subscriber) {
	for _, topic := range sub.Topics() {
		b.Unsubscribe(sub, topic)
	}

	b.subsMu.Lock()
	delete(b.subscribers, sub.ID())
	b.subsMu.Unlock()

	sub.Shutdown()
}

func (b *EventsStream) SubscribersCount(topic string) int {
	b.topicsMu.RLock()
	defer b.topicsMu.RUnlock()
	return len(b.topics[topic])
}

func (b *EventsStream) Subscribe(sub Subscriber, topic string) {
	if !sub.Active() || b.closed.Load() {
		return
	}

	sub.subscribe(topic)

	b.topicsMu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		b.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	b.topicsMu.Unlock()
}

func (b *EventsStream) Unsubscribe(sub Subscriber, topic string) {
	sub.unsubscribe(topic)

	b.topicsMu.Lock()
	if subs, ok := b.topics[topic]; ok {
		delete(subs, sub.ID())
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	b.topicsMu.Unlock()
}

func (b *EventsStream) Publish(topic string, payload any) {
	b.publish(topic, payload)
}

func (b *EventsStream) Broadcast(payload any, topics []string) {
	for _, topic := range topics {
		b.publish(topic, payload)
	}
}

func (b *EventsStream) Topics() []string {
	b.topicsMu.RLock()
	topics := make([]string, 0, len(b.topics))
	for topic := range b.topics {
		topics = append(topics, topic)
	}
	b.topicsMu.RUnlock()
	sort.Strings(topics)
	return topics
}

func (b *EventsStream) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.subsMu.Lock()
	for _, sub := range b.subscribers {
		sub.Shutdown()
	}
	b.subscribers = make(map[string]Subscriber)
	b.subsMu.Unlock()

	b.topicsMu.Lock()
	b.topics = make(map[string]map[string]Subscriber)
	b.topicsMu.Unlock()
}

func (b *EventsStream) publish(topic string, payload any) {
	if b.closed.Load() {
		return
	}

	b.topicsMu.RLock()
	subs := b.topics[topic]
	if len(subs) == 0 {
		b.topicsMu.RUnlock()
		return
	}
	targets := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	b.topicsMu.RUnlock()

	message := NewMessage(topic, payload)
	for _, sub := range targets {
		if sub.Active() {
			sub.signal(message)
		}
	}
}
