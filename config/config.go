package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config contains all configuration for the application
type Config struct {
	// Server Configuration
	ServerPort string

	// Camera Configuration
	VideoDevice      string // Device node probed for USB cameras
	PhotoWidth       int    // Still photo resolution
	PhotoHeight      int
	StreamWidth      int // MJPEG stream resolution
	StreamHeight     int
	CaptureTimeoutMs int // Hard limit for a single capture invocation
	FrameIntervalMs  int // Delay between stream frames; 0 = re-trigger immediately

	// Storage Configuration
	ImagesPath    string // Captured stills and stream scratch files
	SchedulesPath string // JSON file holding power schedules
	DatabasePath  string // SQLite capture history

	// Power Configuration
	PowerDelayMs int // Delay between HTTP response and the actual power action

	// Backup Configuration (S3-compatible, e.g. Cloudflare R2)
	BackupEnabled   bool
	BackupAccessKey string
	BackupSecretKey string
	BackupAccountID string
	BackupBucket    string
	BackupEndpoint  string
	BackupRegion    string
	BackupBaseURL   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	cfg := Config{
		ServerPort: getEnv("SERVER_PORT", "3001"),

		VideoDevice:      getEnv("VIDEO_DEVICE", "/dev/video0"),
		PhotoWidth:       getEnvInt("PHOTO_WIDTH", 1920),
		PhotoHeight:      getEnvInt("PHOTO_HEIGHT", 1080),
		StreamWidth:      getEnvInt("STREAM_WIDTH", 1280),
		StreamHeight:     getEnvInt("STREAM_HEIGHT", 720),
		CaptureTimeoutMs: getEnvInt("CAPTURE_TIMEOUT_MS", 10000),
		FrameIntervalMs:  getEnvInt("FRAME_INTERVAL_MS", 100),

		ImagesPath:    getEnv("IMAGES_PATH", "./data/images"),
		SchedulesPath: getEnv("SCHEDULES_PATH", "./data/schedules.json"),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/captures.db"),

		PowerDelayMs: getEnvInt("POWER_DELAY_MS", 1000),

		BackupAccessKey: getEnv("BACKUP_ACCESS_KEY", ""),
		BackupSecretKey: getEnv("BACKUP_SECRET_KEY", ""),
		BackupAccountID: getEnv("BACKUP_ACCOUNT_ID", ""),
		BackupBucket:    getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:  getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:    getEnv("BACKUP_REGION", "auto"),
		BackupBaseURL:   getEnv("BACKUP_BASE_URL", ""),
	}

	// Backup is opt-in: it only activates when credentials and a bucket are set
	cfg.BackupEnabled = cfg.BackupAccessKey != "" && cfg.BackupSecretKey != "" && cfg.BackupBucket != ""

	return cfg
}

// getEnv returns environment variable or fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns environment variable parsed as int or fallback value
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, fallback)
	}
	return fallback
}

// EnsurePaths creates necessary paths
func EnsurePaths(cfg Config) {
	if err := os.MkdirAll(cfg.ImagesPath, 0755); err != nil {
		log.Printf("Failed to create images directory %s: %v", cfg.ImagesPath, err)
	}

	schedulesDir := filepath.Dir(cfg.SchedulesPath)
	if err := os.MkdirAll(schedulesDir, 0755); err != nil {
		log.Printf("Failed to create schedules directory %s: %v", schedulesDir, err)
	}

	dbDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Printf("Failed to create database directory %s: %v", dbDir, err)
	}
}
