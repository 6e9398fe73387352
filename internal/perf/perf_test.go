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

package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarks(t *testing.T) {
	marks := NewMarks()
	tick := time.Unix(0, 0)
	marks.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	marks.Mark("code/extHost/willWaitForConfig")
	marks.Mark("code/extHost/ready")
	assert.True(t, marks.Has("code/extHost/ready"))
	assert.False(t, marks.Has("code/extHost/didWaitForConfig"))

	drained := marks.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "code/extHost/willWaitForConfig", drained[0].Name)
	assert.True(t, drained[0].Time.Before(drained[1].Time))
	assert.Empty(t, marks.Drain())
}
