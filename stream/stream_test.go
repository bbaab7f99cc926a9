package stream

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fileFrameSource writes a canned frame to the scratch path on every call.
type fileFrameSource struct {
	frame    []byte
	captures atomic.Int64
	err      error
}

func (f *fileFrameSource) CaptureOnce(ctx context.Context, outputPath string, width, height int) error {
	f.captures.Add(1)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, f.frame, 0644)
}

func newTestManager(t *testing.T, source FrameSource, interval time.Duration) *Manager {
	t.Helper()
	return NewManager(source, t.TempDir(), 640, 480, interval)
}

func TestRunWritesMultipartFrames(t *testing.T) {
	source := &fileFrameSource{frame: []byte("jpeg-frame-data")}
	m := newTestManager(t, source, 5*time.Millisecond)

	session, already := m.Open("client-1")
	if already {
		t.Fatal("Fresh manager should not report an active session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	m.Run(ctx, session, &buf)

	out := buf.String()
	if !strings.Contains(out, "--FRAME\r\n") {
		t.Fatalf("Missing boundary in output: %q", out)
	}
	if !strings.Contains(out, "Content-Type: image/jpeg\r\n") {
		t.Error("Missing part content type")
	}
	if !strings.Contains(out, "Content-Length: 15\r\n\r\njpeg-frame-data\r\n") {
		t.Errorf("Malformed part body: %q", out)
	}
	if source.captures.Load() < 2 {
		t.Errorf("Expected multiple captures, got %d", source.captures.Load())
	}
}

func TestRunCleansUpScratchAndSession(t *testing.T) {
	source := &fileFrameSource{frame: []byte("x")}
	m := newTestManager(t, source, 5*time.Millisecond)

	session, _ := m.Open("client-1")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m.Run(ctx, session, &bytes.Buffer{})

	if _, err := os.Stat(session.scratchPath); !os.IsNotExist(err) {
		t.Error("Scratch file should be removed when the session ends")
	}
	if m.Has("client-1") {
		t.Error("Session should be deregistered when the loop ends")
	}
}

func TestOpenIsIdempotentPerClient(t *testing.T) {
	m := newTestManager(t, &fileFrameSource{frame: []byte("x")}, 0)

	first, already := m.Open("client-1")
	if already {
		t.Fatal("First open should create a session")
	}
	second, already := m.Open("client-1")
	if !already {
		t.Fatal("Second open for the same client should report already running")
	}
	if first.ID != second.ID {
		t.Error("Same client must get the same session")
	}

	// Independent clients each get their own session.
	other, already := m.Open("client-2")
	if already || other.ID == first.ID {
		t.Error("Different clients must get distinct sessions")
	}
	if m.ActiveCount() != 2 {
		t.Errorf("Expected 2 active sessions, got %d", m.ActiveCount())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := newTestManager(t, &fileFrameSource{frame: []byte("x")}, 0)
	m.Open("client-1")

	if !m.Close("client-1") {
		t.Fatal("First close should report a stopped session")
	}
	if m.Close("client-1") {
		t.Fatal("Second close should be a clean no-op")
	}
}

func TestExplicitStopEndsRunAndKillsCapture(t *testing.T) {
	blocked := make(chan struct{})
	source := &blockingSource{started: blocked}
	m := newTestManager(t, source, 0)

	session, _ := m.Open("client-1")
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), session, &bytes.Buffer{})
		close(done)
	}()

	<-blocked
	m.Close("client-1")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not end after explicit stop")
	}
	if !source.cancelled.Load() {
		t.Error("In-flight capture should observe cancellation")
	}
}

func TestRunBacksOffAfterCaptureError(t *testing.T) {
	source := &fileFrameSource{frame: []byte("x"), err: errors.New("capture failed")}
	m := newTestManager(t, source, 5*time.Millisecond)

	session, _ := m.Open("client-1")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	m.Run(ctx, session, &buf)

	// The 500ms minimum backoff allows only the initial attempt inside the
	// 100ms window; a tight failure loop would show dozens.
	if n := source.captures.Load(); n > 2 {
		t.Errorf("Expected backoff to limit retries, got %d attempts", n)
	}
	if buf.Len() != 0 {
		t.Error("No frames should be written when every capture fails")
	}
}

// blockingSource blocks until its context is cancelled, recording that the
// cancellation reached the in-flight capture.
type blockingSource struct {
	started   chan struct{}
	cancelled atomic.Bool
	once      atomic.Bool
}

func (b *blockingSource) CaptureOnce(ctx context.Context, outputPath string, width, height int) error {
	if b.once.CompareAndSwap(false, true) {
		close(b.started)
	}
	<-ctx.Done()
	b.cancelled.Store(true)
	return ctx.Err()
}
