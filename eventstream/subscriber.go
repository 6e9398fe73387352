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

package eventstream

import (
	"sync"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Subscriber receives the messages published on the topics it subscribed to.
//
// The unexported methods prevent external implementations.
// Subscribers are created by a Stream via AddSubscriber().
type Subscriber interface {
	ID() string
	Active() bool
	Topics() []string
	// Iterator drains the buffered messages into a closed channel.
	Iterator() chan *Message
	// Poll waits up to timeout for the next message.
	Poll(timeout time.Duration) (*Message, bool)
	Shutdown()

	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

type subscriber struct {
	id string

	topicsMu sync.Mutex
	topics   map[string]bool

	messages *gods.Queue

	active *atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	return &subscriber{
		id:       uuid.NewString(),
		topics:   make(map[string]bool),
		messages: gods.New(16),
		active:   atomic.NewBool(true),
	}
}

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Active() bool {
	return s.active.Load()
}

func (s *subscriber) Topics() []string {
	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()

	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	return topics
}

// Shutdown deactivates the subscriber and releases the buffered messages.
func (s *subscriber) Shutdown() {
	if s.active.CompareAndSwap(true, false) {
		s.messages.Dispose()
	}
}

// Iterator drains the messages buffered at the time of invocation.
// Messages enqueued concurrently with the call may be left for the next one.
func (s *subscriber) Iterator() chan *Message {
	n := s.messages.Len()
	out := make(chan *Message, n)
	if n > 0 {
		items, err := s.messages.Get(n)
		if err == nil {
			for _, item := range items {
				if message, ok := item.(*Message); ok {
					out <- message
				}
			}
		}
	}
	close(out)
	return out
}

func (s *subscriber) Poll(timeout time.Duration) (*Message, bool) {
	if !s.active.Load() {
		return nil, false
	}
	items, err := s.messages.Poll(1, timeout)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	message, ok := items[0].(*Message)
	return message, ok
}

func (s *subscriber) signal(message *Message) {
	if s.active.Load() {
		_ = s.messages.Put(message)
	}
}

func (s *subscriber) subscribe(topic string) {
	s.topicsMu.Lock()
	s.topics[topic] = true
	s.topicsMu.Unlock()
}

func (s *subscriber) unsubscribe(topic string) {
	s.topicsMu.Lock()
	delete(s.topics, topic)
	s.topicsMu.Unlock()
}
