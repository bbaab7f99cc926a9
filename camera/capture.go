package camera

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/VictorChenLi/raspberry-pi-status/command"
)

// USB pixel formats, tried in order. Most UVC webcams deliver MJPEG
// directly; YUYV is the raw fallback for those that do not.
const (
	usbFormatPreferred = "mjpeg"
	usbFormatFallback  = "yuyv422"
)

// Capturer drives one external capture invocation per frame. A weight-1
// semaphore serializes invocations so concurrent stream sessions cannot point
// two capture processes at the same physical device at once.
type Capturer struct {
	runner     command.Runner
	capability Capability
	timeout    time.Duration
	device     *semaphore.Weighted
}

func NewCapturer(runner command.Runner, capability Capability, timeout time.Duration) *Capturer {
	return &Capturer{
		runner:     runner,
		capability: capability,
		timeout:    timeout,
		device:     semaphore.NewWeighted(1),
	}
}

func (c *Capturer) Capability() Capability {
	return c.capability
}

// CaptureOnce writes a single JPEG frame to outputPath. It fails with
// ErrNoCamera when no camera was detected and ErrCaptureFailed when the
// external command exits non-zero or exceeds the configured timeout. A hung
// process is killed, never left running.
func (c *Capturer) CaptureOnce(ctx context.Context, outputPath string, width, height int) error {
	switch c.capability.Type {
	case TypeCSI:
		if err := c.device.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		}
		defer c.device.Release(1)
		return c.runCapture(ctx, "rpicam-still",
			"-o", outputPath,
			"--width", strconv.Itoa(width),
			"--height", strconv.Itoa(height),
			"--timeout", "1",
			"--nopreview",
		)
	case TypeUSB:
		if err := c.device.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		}
		defer c.device.Release(1)
		err := c.runCapture(ctx, "ffmpeg", usbArgs(c.capability.Device, outputPath, width, height, usbFormatPreferred)...)
		if err == nil || ctx.Err() != nil {
			return err
		}
		// Preferred pixel format rejected by the device, retry once raw
		return c.runCapture(ctx, "ffmpeg", usbArgs(c.capability.Device, outputPath, width, height, usbFormatFallback)...)
	default:
		return ErrNoCamera
	}
}

// runCapture executes one time-bounded capture command.
func (c *Capturer) runCapture(ctx context.Context, name string, args ...string) error {
	captureCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Run(captureCtx, name, args...)
	if err != nil {
		return fmt.Errorf("%w: %v (output: %s)", ErrCaptureFailed, err, truncate(out, 200))
	}
	return nil
}

func usbArgs(device, outputPath string, width, height int, format string) []string {
	return []string{
		"-y",
		"-f", "v4l2",
		"-input_format", format,
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", device,
		"-frames:v", "1",
		outputPath,
	}
}

func truncate(out []byte, max int) string {
	if len(out) > max {
		out = out[:max]
	}
	return string(out)
}
