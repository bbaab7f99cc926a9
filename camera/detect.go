package camera

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/VictorChenLi/raspberry-pi-status/command"
)

// CSI bridge drivers show up in v4l2 card/driver strings on Pi models.
var csiChipsets = []string{"bcm2835", "unicam", "mmal", "rp1-cfe"}

// Device-tree nodes that indicate CSI camera hardware even when no video
// node has been created for it.
var csiDeviceTreePaths = []string{
	"/proc/device-tree/soc/csi@7e800000",
	"/proc/device-tree/soc/csi@7e801000",
	"/proc/device-tree/cam0_reg",
	"/proc/device-tree/cam1_reg",
}

// Detector probes the host for an attached camera. Probes run in strict
// priority order; CSI-specific tools are authoritative when present and the
// bare video node is only an ambiguous fallback signal.
type Detector struct {
	runner       command.Runner
	videoDevice  string
	probeTimeout time.Duration
	treePaths    []string
	fileExists   func(string) bool
}

func NewDetector(runner command.Runner, videoDevice string) *Detector {
	return &Detector{
		runner:       runner,
		videoDevice:  videoDevice,
		probeTimeout: 5 * time.Second,
		treePaths:    csiDeviceTreePaths,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Detect classifies the attached camera. Each probe is independently fault
// tolerant: a missing tool or non-zero exit moves on to the next signal.
func (d *Detector) Detect(ctx context.Context) Capability {
	// 1. rpicam-still enumeration is the authoritative CSI signal.
	if out, err := d.probe(ctx, "rpicam-still", "--list-cameras"); err == nil {
		if !strings.Contains(strings.ToLower(string(out)), "no cameras") {
			log.Println("[CAMERA] CSI camera detected via rpicam-still")
			return Capability{Type: TypeCSI, Available: true, Details: firstLine(out)}
		}
	}

	// 2. A video node may be a USB webcam or the CSI bridge in disguise.
	if d.fileExists(d.videoDevice) {
		if out, err := d.probe(ctx, "v4l2-ctl", "--device="+d.videoDevice, "--info"); err == nil {
			lower := strings.ToLower(string(out))
			for _, chip := range csiChipsets {
				if strings.Contains(lower, chip) {
					log.Printf("[CAMERA] CSI camera detected via v4l2 driver %q", chip)
					return Capability{Type: TypeCSI, Available: true, Details: firstLine(out)}
				}
			}
			log.Printf("[CAMERA] USB camera detected at %s", d.videoDevice)
			return Capability{Type: TypeUSB, Device: d.videoDevice, Available: true, Details: firstLine(out)}
		}
	}

	// 3. Device tree says the hardware is wired up even if no node exists yet.
	for _, path := range d.treePaths {
		if d.fileExists(path) {
			log.Printf("[CAMERA] CSI hardware present in device tree (%s), video interface not initialized", path)
			return Capability{Type: TypeCSI, Available: false, Details: "detected via device tree, video interface not initialized"}
		}
	}

	// 4. Older OS images ship the libcamera-prefixed tools.
	if out, err := d.probe(ctx, "libcamera-still", "--list-cameras"); err == nil {
		if !strings.Contains(strings.ToLower(string(out)), "no cameras") {
			log.Println("[CAMERA] CSI camera detected via libcamera-still")
			return Capability{Type: TypeCSI, Available: true, Details: firstLine(out)}
		}
	}

	// 5. A video node with no other signal: assume USB.
	if d.fileExists(d.videoDevice) {
		log.Printf("[CAMERA] Assuming USB camera at %s", d.videoDevice)
		return Capability{Type: TypeUSB, Device: d.videoDevice, Available: true}
	}

	log.Println("[CAMERA] No camera detected")
	return Capability{Type: TypeNone}
}

func (d *Detector) probe(ctx context.Context, name string, args ...string) ([]byte, error) {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()
	return d.runner.Run(probeCtx, name, args...)
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
