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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With unknown level defaults to debug", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(Level(42), buffer)
		require.Equal(t, DebugLevel, logger.LogLevel())

		logger.Debug("test debug")
		flushLogger(t, logger)

		msg, err := extractMessage(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "test debug", msg)
		lvl, err := extractLevel(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, DebugLevel.String(), lvl)
	})
	t.Run("With info level filters debug", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debugf("hidden %d", 1)
		flushLogger(t, logger)
		assert.Empty(t, buffer.String())

		assert.False(t, logger.Enabled(DebugLevel))
		assert.True(t, logger.Enabled(InfoLevel))
		assert.True(t, logger.Enabled(ErrorLevel))

		logger.Infof("activated %s", "pub.ext")
		flushLogger(t, logger)
		msg, err := extractMessage(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "activated pub.ext", msg)
	})
	t.Run("With warn level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buffer)
		require.Equal(t, WarningLevel, logger.LogLevel())

		logger.Warn("slow activation")
		flushLogger(t, logger)
		lvl, err := extractLevel(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, WarningLevel.String(), lvl)
	})
	t.Run("With error level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		require.Equal(t, ErrorLevel, logger.LogLevel())

		logger.Warnf("dropped %s", "warn")
		assert.Empty(t, buffer.String())

		logger.Errorf("activation of %s failed", "pub.ext")
		flushLogger(t, logger)
		msg, err := extractMessage(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "activation of pub.ext failed", msg)
	})
	t.Run("With panic", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(PanicLevel, buffer)
		require.Equal(t, PanicLevel, logger.LogLevel())
		assert.Panics(t, func() { logger.Panic("boom") })
		assert.Panics(t, func() { logger.Panicf("boom %d", 2) })
	})
	t.Run("With fatal level reported", func(t *testing.T) {
		logger := NewZap(FatalLevel, new(bytes.Buffer))
		assert.Equal(t, FatalLevel, logger.LogLevel())
	})
	t.Run("LogOutput and StdLogger", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.Len(t, logger.LogOutput(), 1)

		std := logger.StdLogger()
		require.NotNil(t, std)
		std.Print("from std")
		flushLogger(t, logger)
		msg, err := extractMessage(buffer.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "from std", msg)
	})
}

func TestZapWith(t *testing.T) {
	t.Run("Adds structured fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("extension", "pub.ext", "elapsed", 3*time.Millisecond, "err", errors.New("x")).Info("activated")
		flushLogger(t, logger)

		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &m))
		assert.Contains(t, m, "extension")
		assert.Contains(t, m, "elapsed")
		assert.Contains(t, m, "err")
	})
	t.Run("Returns the same logger without fields", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		assert.Equal(t, Logger(logger), logger.With())
		assert.Equal(t, Logger(logger), logger.With(1, "skipped"))
	})
	t.Run("Orphan value recorded under underscore", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("a", 1, "orphan").Info("msg")
		flushLogger(t, logger)

		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &m))
		assert.Contains(t, m, "a")
		assert.Contains(t, m, "_")
	})
	t.Run("Many pairs", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("a", 1, "b", int64(2), "c", uint64(3), "d", true, "e", 1.5, "f", "s", "g", []string{"x"}).Info("msg")
		flushLogger(t, logger)

		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &m))
		for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			assert.Contains(t, m, k)
		}
	})
}

func TestZapFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exthost.log")
	file, err := os.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	logger := NewZap(InfoLevel, file)
	logger.Info("buffered line")
	require.NoError(t, logger.Flush())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	msg, err := extractMessage(content)
	require.NoError(t, err)
	assert.Equal(t, "buffered line", msg)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarningLevel, ParseLevel("warning"))
	assert.Equal(t, WarningLevel, ParseLevel(" warn "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, FatalLevel, ParseLevel("fatal"))
	assert.Equal(t, PanicLevel, ParseLevel("panic"))
	assert.Equal(t, InfoLevel, ParseLevel("whatever"))
	assert.Equal(t, "invalid", InvalidLevel.String())
}

func flushLogger(t *testing.T, logger *Zap) {
	t.Helper()
	require.NoError(t, logger.Flush())
}

func extractMessage(b []byte) (string, error) {
	return extractField(b, "msg")
}

func extractLevel(b []byte) (string, error) {
	return extractField(b, "level")
}

func extractField(b []byte, key string) (string, error) {
	c := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &c); err != nil {
		return "", err
	}
	if v, ok := c[key]; ok {
		return strconv.Unquote(string(v))
	}
	return "", nil
}
