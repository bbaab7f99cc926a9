package camera

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedRunner returns canned responses per command name and records every
// invocation.
type scriptedRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]scriptedResponse
}

type scriptedResponse struct {
	out []byte
	err error
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()

	if resp, ok := r.responses[name]; ok {
		return resp.out, resp.err
	}
	return nil, errors.New("command not found")
}

func (r *scriptedRunner) called(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == name {
			return true
		}
	}
	return false
}

func newTestDetector(runner *scriptedRunner, existing ...string) *Detector {
	d := NewDetector(runner, "/dev/video0")
	d.probeTimeout = time.Second
	d.fileExists = func(path string) bool {
		for _, p := range existing {
			if p == path {
				return true
			}
		}
		return false
	}
	return d
}

func TestDetectNoCamera(t *testing.T) {
	runner := &scriptedRunner{}
	d := newTestDetector(runner)

	cap := d.Detect(context.Background())
	if cap.Type != TypeNone {
		t.Fatalf("Expected none, got %s", cap.Type)
	}
}

func TestDetectCSIViaRpicam(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]scriptedResponse{
		"rpicam-still": {out: []byte("Available cameras:\n0 : imx219 [3280x2464]")},
		// A conflicting USB signal must lose to the earlier probe
		"v4l2-ctl": {out: []byte("Driver name : uvcvideo")},
	}}
	d := newTestDetector(runner, "/dev/video0")

	cap := d.Detect(context.Background())
	if cap.Type != TypeCSI {
		t.Fatalf("Expected csi, got %s", cap.Type)
	}
	if runner.called("v4l2-ctl") {
		t.Error("v4l2-ctl should not run once rpicam-still succeeded")
	}
}

func TestDetectUSBViaV4L2(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]scriptedResponse{
		"rpicam-still": {out: []byte("No cameras available!")},
		"v4l2-ctl":     {out: []byte("Driver name : uvcvideo\nCard type : HD Webcam")},
	}}
	d := newTestDetector(runner, "/dev/video0")

	cap := d.Detect(context.Background())
	if cap.Type != TypeUSB {
		t.Fatalf("Expected usb, got %s", cap.Type)
	}
	if cap.Device != "/dev/video0" {
		t.Errorf("Expected device /dev/video0, got %q", cap.Device)
	}
	if !cap.Available {
		t.Error("USB capability should be available")
	}
}

func TestDetectCSIViaV4L2Chipset(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]scriptedResponse{
		"v4l2-ctl": {out: []byte("Driver name : unicam\nCard type : bcm2835-unicam")},
	}}
	d := newTestDetector(runner, "/dev/video0")

	cap := d.Detect(context.Background())
	if cap.Type != TypeCSI {
		t.Fatalf("Expected csi, got %s", cap.Type)
	}
}

func TestDetectCSIViaDeviceTree(t *testing.T) {
	runner := &scriptedRunner{}
	d := newTestDetector(runner, "/proc/device-tree/cam1_reg")

	cap := d.Detect(context.Background())
	if cap.Type != TypeCSI {
		t.Fatalf("Expected csi, got %s", cap.Type)
	}
	if cap.Available {
		t.Error("Device-tree-only detection has no video interface, must not be available")
	}
	if !strings.Contains(cap.Details, "device tree") {
		t.Errorf("Expected degraded device-tree details, got %q", cap.Details)
	}
}

func TestDetectCSIViaLibcameraFallback(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]scriptedResponse{
		"libcamera-still": {out: []byte("Available cameras:\n0 : ov5647")},
	}}
	d := newTestDetector(runner)

	cap := d.Detect(context.Background())
	if cap.Type != TypeCSI {
		t.Fatalf("Expected csi, got %s", cap.Type)
	}
}

func TestDetectUSBFallbackOnBareVideoNode(t *testing.T) {
	// Every probe fails but the node exists: assume USB.
	runner := &scriptedRunner{responses: map[string]scriptedResponse{
		"v4l2-ctl": {err: errors.New("exit status 1")},
	}}
	d := newTestDetector(runner, "/dev/video0")

	cap := d.Detect(context.Background())
	if cap.Type != TypeUSB {
		t.Fatalf("Expected usb, got %s", cap.Type)
	}
}
