package storage

import (
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// maxUploadAttempts bounds the retry loop for a single photo upload.
const maxUploadAttempts = 3

// BackupConfig holds credentials for an S3-compatible bucket (Cloudflare R2,
// MinIO, plain S3).
type BackupConfig struct {
	AccessKey string
	SecretKey string
	AccountID string
	Bucket    string
	Endpoint  string
	Region    string
	BaseURL   string // Public URL prefix for uploaded objects
}

// PhotoBackup copies captured stills off the device. Uploads are
// fire-and-forget: a failed upload is logged and the local file is untouched.
type PhotoBackup struct {
	config   BackupConfig
	uploader *s3manager.Uploader
}

// NewPhotoBackup creates a backup client for the configured bucket.
func NewPhotoBackup(config BackupConfig) (*PhotoBackup, error) {
	if config.Region == "" {
		config.Region = "auto"
	}
	// Cloudflare R2 endpoints derive from the account id
	if config.Endpoint == "" && config.AccountID != "" {
		config.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", config.AccountID)
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	// Single connection keeps the Pi's uplink usable while uploading
	uploader := s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		u.Concurrency = 1
	})

	return &PhotoBackup{config: config, uploader: uploader}, nil
}

// UploadPhoto uploads one still and returns its public URL.
func (b *PhotoBackup) UploadPhoto(localPath string) (string, error) {
	remotePath := path.Join("photos", path.Base(localPath))

	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		file, err := os.Open(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %v", localPath, err)
		}

		_, err = b.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(b.config.Bucket),
			Key:         aws.String(remotePath),
			Body:        file,
			ContentType: aws.String("image/jpeg"),
		})
		file.Close()
		if err == nil {
			return b.config.BaseURL + "/" + remotePath, nil
		}

		lastErr = err
		log.Printf("[BACKUP] Upload attempt %d/%d for %s failed: %v", attempt, maxUploadAttempts, localPath, err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return "", fmt.Errorf("upload failed after %d attempts: %v", maxUploadAttempts, lastErr)
}

// UploadPhotoAsync uploads in the background, logging the outcome.
func (b *PhotoBackup) UploadPhotoAsync(localPath string) {
	go func() {
		url, err := b.UploadPhoto(localPath)
		if err != nil {
			log.Printf("[BACKUP] %v", err)
			return
		}
		log.Printf("[BACKUP] Uploaded %s -> %s", localPath, url)
	}()
}
