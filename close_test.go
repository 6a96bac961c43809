package graphkit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/graphkit/plugin"
)

type mockCloser struct {
	closeErr   error
	closeCalls int
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	return m.closeErr
}

func TestCloseWithLog_NilCloser(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	CloseWithLog(nil, logger, "driver")
	assert.Empty(t, logBuf.String())
}

func TestCloseWithLog_SuccessfulClose(t *testing.T) {
	closer := &mockCloser{}
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	CloseWithLog(closer, logger, "driver")

	assert.Equal(t, 1, closer.closeCalls)
	assert.Empty(t, logBuf.String())
}

func TestCloseWithLog_CloseError(t *testing.T) {
	closer := &mockCloser{closeErr: errors.New("close failed: resource busy")}
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	CloseWithLog(closer, logger, "redis client")

	assert.Equal(t, 1, closer.closeCalls)
	out := logBuf.String()
	assert.Contains(t, out, "failed to close resource")
	assert.Contains(t, out, "redis client")
	assert.Contains(t, out, "close failed")
	assert.Contains(t, out, "level=WARN")
}

func TestCloseWithLog_NilLogger(t *testing.T) {
	closer := &mockCloser{closeErr: errors.New("test error")}
	require.NotPanics(t, func() {
		CloseWithLog(closer, nil, "driver")
	})
	assert.Equal(t, 1, closer.closeCalls)
}

func TestCloseWithLog_RealIOCloser(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	r, w := io.Pipe()
	w.Close()
	CloseWithLog(r, logger, "pipe reader")
	assert.Empty(t, logBuf.String())
}

func TestErrorClassification(t *testing.T) {
	interrupted := plugin.NewInterruptedError("prefattach.Run", context.Canceled)
	invalid := plugin.NewValidationError("prefattach.Run", errors.New("n must be at least 1"))

	assert.True(t, IsInterrupted(interrupted))
	assert.False(t, IsInvalid(interrupted))
	assert.True(t, IsInvalid(invalid))
	assert.False(t, IsInterrupted(invalid))
	assert.False(t, IsInterrupted(errors.New("boom")))
}
