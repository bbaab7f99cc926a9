package camera

import "errors"

// Type classifies the attached capture hardware.
type Type string

const (
	TypeNone Type = "none" // No camera detected
	TypeCSI  Type = "csi"  // Ribbon camera module driven by rpicam-still
	TypeUSB  Type = "usb"  // UVC webcam driven by ffmpeg against a /dev/video node
)

// Capability describes the camera found at startup. It is assigned once by
// Detector.Detect and only read afterwards.
type Capability struct {
	Type      Type   `json:"type"`
	Device    string `json:"device"`    // Device node, USB only
	Available bool   `json:"available"` // False when hardware is present but unusable
	Details   string `json:"details,omitempty"`
}

var (
	// ErrNoCamera is returned by capture operations when no camera was
	// detected at startup.
	ErrNoCamera = errors.New("no camera available")

	// ErrCaptureFailed wraps failures of the external capture command,
	// including timeouts.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrNotFound is returned when a requested image does not exist.
	ErrNotFound = errors.New("image not found")
)
