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

import "time"

// Message is an event delivered to the subscribers of a topic.
type Message struct {
	topic     string
	payload   any
	timestamp time.Time
}

// NewMessage creates a message for the given topic.
func NewMessage(topic string, payload any) *Message {
	return &Message{
		topic:     topic,
		payload:   payload,
		timestamp: time.Now(),
	}
}

// Topic returns the topic the message was published on.
func (m *Message) Topic() string {
	return m.topic
}

// Payload returns the message content.
func (m *Message) Payload() any {
	return m.payload
}

// Timestamp returns the publication time.
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}
