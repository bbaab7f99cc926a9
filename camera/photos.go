package camera

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Image describes one captured still on disk.
type Image struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// CaptureLogger records capture metadata, typically into the SQLite history.
type CaptureLogger interface {
	LogCapture(filename string, size int64, width, height int) error
}

// Uploader sends a captured still to off-device storage.
type Uploader interface {
	UploadPhotoAsync(localPath string)
}

// PhotoService captures full-resolution stills and manages the images
// directory. History logging and backup are best-effort: their failures are
// logged and never fail the capture itself.
type PhotoService struct {
	capturer  *Capturer
	imagesDir string
	width     int
	height    int
	history   CaptureLogger
	uploader  Uploader
}

func NewPhotoService(capturer *Capturer, imagesDir string, width, height int, history CaptureLogger, uploader Uploader) *PhotoService {
	return &PhotoService{
		capturer:  capturer,
		imagesDir: imagesDir,
		width:     width,
		height:    height,
		history:   history,
		uploader:  uploader,
	}
}

// Capture takes a single full-resolution photo. The filename encodes the
// capture time in unix milliseconds; on the theoretical duplicate timestamp
// the later write wins.
func (s *PhotoService) Capture(ctx context.Context) (Image, error) {
	timestamp := time.Now().UnixMilli()
	filename := fmt.Sprintf("photo_%d.jpg", timestamp)
	outputPath := filepath.Join(s.imagesDir, filename)

	if err := s.capturer.CaptureOnce(ctx, outputPath, s.width, s.height); err != nil {
		return Image{}, err
	}

	var size int64
	if info, err := os.Stat(outputPath); err == nil {
		size = info.Size()
	}

	if s.history != nil {
		if err := s.history.LogCapture(filename, size, s.width, s.height); err != nil {
			log.Printf("[PHOTO] Failed to record capture history for %s: %v", filename, err)
		}
	}
	if s.uploader != nil {
		s.uploader.UploadPhotoAsync(outputPath)
	}

	log.Printf("[PHOTO] Captured %s (%d bytes)", filename, size)
	return Image{
		Filename:  filename,
		URL:       "/images/" + filename,
		Timestamp: timestamp,
	}, nil
}

// List returns captured stills sorted newest first. Stream scratch files are
// excluded.
func (s *PhotoService) List() ([]Image, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read images directory: %v", err)
	}

	images := []Image{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jpg") || strings.HasPrefix(name, "stream") {
			continue
		}
		images = append(images, Image{
			Filename:  name,
			URL:       "/images/" + name,
			Timestamp: timestampFromFilename(name),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Timestamp > images[j].Timestamp
	})
	return images, nil
}

// Delete removes a captured still. Filenames containing path separators are
// rejected so the handler cannot be walked out of the images directory.
func (s *PhotoService) Delete(filename string) error {
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.imagesDir, filename))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %v", filename, err)
	}
	log.Printf("[PHOTO] Deleted %s", filename)
	return nil
}

// timestampFromFilename extracts the first run of digits, matching the
// photo_<millis>.jpg naming convention.
func timestampFromFilename(name string) int64 {
	start := -1
	for i, r := range name {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			ts, _ := strconv.ParseInt(name[start:i], 10, 64)
			return ts
		}
	}
	if start >= 0 {
		ts, _ := strconv.ParseInt(name[start:], 10, 64)
		return ts
	}
	return 0
}
