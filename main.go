package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/VictorChenLi/raspberry-pi-status/api"
	"github.com/VictorChenLi/raspberry-pi-status/camera"
	"github.com/VictorChenLi/raspberry-pi-status/command"
	"github.com/VictorChenLi/raspberry-pi-status/config"
	"github.com/VictorChenLi/raspberry-pi-status/database"
	"github.com/VictorChenLi/raspberry-pi-status/monitoring"
	"github.com/VictorChenLi/raspberry-pi-status/schedule"
	"github.com/VictorChenLi/raspberry-pi-status/storage"
	"github.com/VictorChenLi/raspberry-pi-status/stream"
	"github.com/VictorChenLi/raspberry-pi-status/system"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadConfig()
	config.EnsurePaths(cfg)

	runner := command.ExecRunner{}

	// Camera capability is probed once; everything downstream reads it.
	detector := camera.NewDetector(runner, cfg.VideoDevice)
	capability := detector.Detect(context.Background())

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open capture history database: %v", err)
	}
	defer db.Close()

	var uploader camera.Uploader
	if cfg.BackupEnabled {
		backup, err := storage.NewPhotoBackup(storage.BackupConfig{
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
			AccountID: cfg.BackupAccountID,
			Bucket:    cfg.BackupBucket,
			Endpoint:  cfg.BackupEndpoint,
			Region:    cfg.BackupRegion,
			BaseURL:   cfg.BackupBaseURL,
		})
		if err != nil {
			log.Printf("Photo backup disabled: %v", err)
		} else {
			log.Printf("Photo backup enabled, bucket %s", cfg.BackupBucket)
			uploader = backup
		}
	}

	capturer := camera.NewCapturer(runner, capability, time.Duration(cfg.CaptureTimeoutMs)*time.Millisecond)
	photos := camera.NewPhotoService(capturer, cfg.ImagesPath, cfg.PhotoWidth, cfg.PhotoHeight, db, uploader)
	streams := stream.NewManager(capturer, cfg.ImagesPath, cfg.StreamWidth, cfg.StreamHeight, time.Duration(cfg.FrameIntervalMs)*time.Millisecond)

	power := system.NewPowerController(runner, time.Duration(cfg.PowerDelayMs)*time.Millisecond)
	engine := schedule.NewTriggerEngine(power.Shutdown)

	store, err := schedule.NewStore(cfg.SchedulesPath, engine)
	if err != nil {
		log.Fatalf("Failed to load schedules: %v", err)
	}

	info := system.NewInfoProvider(runner)

	monitoring.StartMonitoring(5*time.Minute, streams)

	server := api.NewServer(cfg, capability, photos, streams, store, engine, info, power, db)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		streams.CloseAll()
		engine.Shutdown()
		db.Close()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
