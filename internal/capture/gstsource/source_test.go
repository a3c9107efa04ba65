package gstsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"livecatalog/internal/capture"
	"livecatalog/internal/logging"
)

func newTestStream() *stream {
	return &stream{
		logger: logging.NewNop(),
		quit:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
}

func TestAwaitFirstFrameClosesStreamOnPipelineFailure(t *testing.T) {
	st := newTestStream()
	st.fail(classifyPipelineError("Could not open device: Permission denied"))

	err := st.awaitFirstFrame(context.Background(), "/dev/video0", time.Second)
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if !st.closed {
		t.Fatal("expected stream closed after pipeline failure")
	}
}

func TestAwaitFirstFrameClosesStreamOnTimeout(t *testing.T) {
	st := newTestStream()
	err := st.awaitFirstFrame(context.Background(), "/dev/video0", 10*time.Millisecond)
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if !st.closed {
		t.Fatal("expected stream closed after timeout")
	}
}

func TestAwaitFirstFrameKeepsStreamOpenOnFrame(t *testing.T) {
	st := newTestStream()
	close(st.ready)
	if err := st.awaitFirstFrame(context.Background(), "/dev/video0", time.Second); err != nil {
		t.Fatalf("awaitFirstFrame failed: %v", err)
	}
	if st.closed {
		t.Fatal("stream should stay open once a frame arrived")
	}
}
