package database

import "time"

// CaptureRecord is one row of the still-capture history. The images
// directory stays the source of truth for which files exist; this history is
// a queryable log of every capture the daemon performed.
type CaptureRecord struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

// Database defines the interface for capture-history operations
type Database interface {
	LogCapture(filename string, size int64, width, height int) error
	ListCaptures(limit, offset int) ([]CaptureRecord, error)
	DeleteCapture(filename string) error
	CountCaptures() (int, error)
	Close() error
}
