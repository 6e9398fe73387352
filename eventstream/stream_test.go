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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventsStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("With Subscription", func(t *testing.T) {
		stream := New()
		t.Cleanup(stream.Close)

		sub := stream.AddSubscriber()
		require.NotNil(t, sub)
		stream.Subscribe(sub, "t1")
		stream.Subscribe(sub, "t2")

		require.EqualValues(t, 1, stream.SubscribersCount("t1"))
		require.EqualValues(t, 1, stream.SubscribersCount("t2"))
		assert.Equal(t, []string{"t1", "t2"}, stream.Topics())

		stream.RemoveSubscriber(sub)
		assert.Zero(t, stream.SubscribersCount("t1"))
		assert.Zero(t, stream.SubscribersCount("t2"))
		assert.False(t, sub.Active())

		stream.Subscribe(sub, "t3")
		assert.Zero(t, stream.SubscribersCount("t3"))
	})
	t.Run("With Unsubscription", func(t *testing.T) {
		stream := New()
		t.Cleanup(stream.Close)

		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		stream.Subscribe(sub, "t2")

		stream.Unsubscribe(sub, "t1")
		assert.Zero(t, stream.SubscribersCount("t1"))
		require.EqualValues(t, 1, stream.SubscribersCount("t2"))
		assert.ElementsMatch(t, []string{"t2"}, sub.Topics())
	})
	t.Run("With Publication", func(t *testing.T) {
		stream := New()
		t.Cleanup(stream.Close)

		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		stream.Subscribe(sub, "t2")

		stream.Publish("t1", "hi")
		stream.Publish("t2", "hello")
		stream.Publish("t3", "nobody")

		var messages []*Message
		for message := range sub.Iterator() {
			messages = append(messages, message)
		}

		require.Len(t, messages, 2)
		assert.Equal(t, "t1", messages[0].Topic())
		assert.Equal(t, "hi", messages[0].Payload())
		assert.Equal(t, "t2", messages[1].Topic())
		assert.False(t, messages[1].Timestamp().IsZero())

		// drained
		assert.Empty(t, sub.Iterator())
	})
	t.Run("With Broadcast", func(t *testing.T) {
		stream := New()
		t.Cleanup(stream.Close)

		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")
		stream.Subscribe(sub, "t2")

		stream.Broadcast("hi", []string{"t1", "t2"})

		count := 0
		for range sub.Iterator() {
			count++
		}
		assert.Equal(t, 2, count)
	})
	t.Run("With Poll", func(t *testing.T) {
		stream := New()
		t.Cleanup(stream.Close)

		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")

		go func() {
			time.Sleep(20 * time.Millisecond)
			stream.Publish("t1", 42)
		}()

		message, ok := sub.Poll(time.Second)
		require.True(t, ok)
		assert.Equal(t, 42, message.Payload())

		_, ok = sub.Poll(10 * time.Millisecond)
		assert.False(t, ok)
	})
	t.Run("With Close", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber()
		stream.Subscribe(sub, "t1")

		stream.Close()
		stream.Close()

		assert.False(t, sub.Active())
		assert.Empty(t, stream.Topics())

		stream.Publish("t1", "late")
		late := stream.AddSubscriber()
		assert.False(t, late.Active())
	})
}
