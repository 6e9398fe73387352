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

package log

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	assert.NotPanics(t, func() {
		logger.Debug("x")
		logger.Debugf("%s", "x")
		logger.Info("x")
		logger.Infof("%s", "x")
		logger.Warn("x")
		logger.Warnf("%s", "x")
		logger.Error("x")
		logger.Errorf("%s", "x")
	})
	assert.Panics(t, func() { logger.Panic("x") })
	assert.Panics(t, func() { logger.Panicf("%s", "x") })

	assert.False(t, logger.Enabled(ErrorLevel))
	assert.True(t, logger.Enabled(PanicLevel))
	assert.Equal(t, InfoLevel, logger.LogLevel())
	assert.Equal(t, []io.Writer{io.Discard}, logger.LogOutput())
	assert.NotNil(t, logger.StdLogger())
	assert.NoError(t, logger.Flush())
	assert.Equal(t, logger, logger.With("k", "v"))
}
