package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/facewatch/internal/api"
	"github.com/your-org/facewatch/internal/api/ws"
	"github.com/your-org/facewatch/internal/config"
	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/internal/mediamtx"
	"github.com/your-org/facewatch/internal/observability"
	"github.com/your-org/facewatch/internal/queue"
	"github.com/your-org/facewatch/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facewatch server", "port", cfg.Server.Port)

	// Optional MinIO snapshot mirror
	var minioStore *storage.MinIOStore
	if cfg.MinIO.Enabled() {
		minioStore, err = storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	}

	// Optional NATS detection publisher
	var producer *queue.Producer
	if cfg.NATS.URL != "" {
		producer, err = queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
	}

	// Optional Postgres detection archive
	var archive *storage.DetectionArchive
	if cfg.Database.Enabled() {
		archive, err = storage.NewDetectionArchive(cfg.Database)
		if err != nil {
			slog.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer archive.Close()

		if err := archive.EnsureSchema(context.Background()); err != nil {
			slog.Warn("ensure detections schema", "error", err)
		}
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Recognition service
	gallery := storage.NewGalleryStore(cfg.Recognition.GalleryPath)
	detlog := storage.NewDetectionLog(cfg.Recognition.LogsDir)
	snapshots := storage.NewSnapshotStore(cfg.Recognition.SnapshotsDir, minioStore)

	opts := facerec.Options{
		OnDetection: hub.BroadcastDetection,
	}
	if producer != nil {
		opts.Publisher = producer
	}
	if archive != nil {
		opts.Archive = archive
	}

	svc := facerec.NewService(cfg.Recognition, gallery, detlog, snapshots, opts)
	if err := svc.Initialize(context.Background()); err != nil {
		slog.Error("initialize recognition engine", "error", err)
		os.Exit(1)
	}
	defer svc.Shutdown()

	// Media server config editor
	editor := mediamtx.NewEditor(cfg.MediaMTX.ConfigPath, cfg.MediaMTX.WHEPBaseURL)

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		Service:  svc,
		Editor:   editor,
		Hub:      hub,
		Archive:  archive,
		MinIO:    minioStore,
		Producer: producer,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
