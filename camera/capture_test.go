package camera

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// funcRunner delegates to a function, recording argument lists.
type funcRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(ctx context.Context, name string, args []string) ([]byte, error)
}

func (r *funcRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	return r.run(ctx, name, args)
}

func TestCaptureOnceNoCamera(t *testing.T) {
	runner := &funcRunner{run: func(ctx context.Context, name string, args []string) ([]byte, error) {
		t.Fatal("no command should run without a camera")
		return nil, nil
	}}
	c := NewCapturer(runner, Capability{Type: TypeNone}, time.Second)

	err := c.CaptureOnce(context.Background(), "/tmp/out.jpg", 640, 480)
	if !errors.Is(err, ErrNoCamera) {
		t.Fatalf("Expected ErrNoCamera, got %v", err)
	}
}

func TestCaptureOnceFailure(t *testing.T) {
	runner := &funcRunner{run: func(ctx context.Context, name string, args []string) ([]byte, error) {
		return []byte("boom"), errors.New("exit status 1")
	}}
	c := NewCapturer(runner, Capability{Type: TypeCSI, Available: true}, time.Second)

	err := c.CaptureOnce(context.Background(), "/tmp/out.jpg", 640, 480)
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Expected ErrCaptureFailed, got %v", err)
	}
}

// A hung capture command must be killed at the timeout, never left hanging.
func TestCaptureOnceTimeout(t *testing.T) {
	runner := &funcRunner{run: func(ctx context.Context, name string, args []string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	timeout := 100 * time.Millisecond
	c := NewCapturer(runner, Capability{Type: TypeCSI, Available: true}, timeout)

	start := time.Now()
	err := c.CaptureOnce(context.Background(), "/tmp/out.jpg", 640, 480)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Expected ErrCaptureFailed, got %v", err)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Fatalf("Capture took %v, expected to end near the %v timeout", elapsed, timeout)
	}
}

func TestCaptureOnceUSBFormatFallback(t *testing.T) {
	runner := &funcRunner{run: func(ctx context.Context, name string, args []string) ([]byte, error) {
		for _, a := range args {
			if a == usbFormatPreferred {
				return nil, errors.New("Invalid argument")
			}
		}
		return nil, nil
	}}
	c := NewCapturer(runner, Capability{Type: TypeUSB, Device: "/dev/video0", Available: true}, time.Second)

	if err := c.CaptureOnce(context.Background(), "/tmp/out.jpg", 640, 480); err != nil {
		t.Fatalf("Expected fallback format to succeed, got %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("Expected 2 invocations (preferred then fallback), got %d", len(runner.calls))
	}
	if !contains(runner.calls[0], usbFormatPreferred) {
		t.Errorf("First attempt should use %s: %v", usbFormatPreferred, runner.calls[0])
	}
	if !contains(runner.calls[1], usbFormatFallback) {
		t.Errorf("Second attempt should use %s: %v", usbFormatFallback, runner.calls[1])
	}
}

func TestCaptureOnceUSBNoRetryAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &funcRunner{run: func(runCtx context.Context, name string, args []string) ([]byte, error) {
		cancel()
		return nil, errors.New("killed")
	}}
	c := NewCapturer(runner, Capability{Type: TypeUSB, Device: "/dev/video0", Available: true}, time.Second)

	if err := c.CaptureOnce(ctx, "/tmp/out.jpg", 640, 480); err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("Cancelled capture must not retry the fallback format, got %d calls", len(runner.calls))
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
