package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"umigallery/config"
	"umigallery/httpServer"
	"umigallery/internal/auth"
	"umigallery/internal/convert"
	"umigallery/internal/gallerymanager"
	"umigallery/internal/mcapreader"
	"umigallery/internal/metrics"
	"umigallery/internal/storage"
	"umigallery/internal/thumbnail"
	"umigallery/pkg/models"
)

func main() {
	log.Println("Starting UMI Gallery converter...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Capture directory: %s", cfg.CaptureDir)
	log.Printf("Skip topics: %v", cfg.SkipTopics)

	mode := "all"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	// Initialize storage
	var storageBackend storage.Storage

	if cfg.StorageType == "gcs" {
		if cfg.GCSProjectID == "" || cfg.GCSBucketName == "" {
			log.Fatal("GCS_PROJECT_ID and GCS_BUCKET_NAME must be set when STORAGE_TYPE=gcs")
		}

		ctx := context.Background()
		gcsStorage, err := storage.NewGCSStorage(ctx, cfg.GCSProjectID, cfg.GCSBucketName, cfg.GCSBaseDir)
		if err != nil {
			log.Fatalf("Failed to initialize GCS storage: %v", err)
		}
		storageBackend = gcsStorage
		log.Printf("Storage initialized: GCS bucket=%s, project=%s, baseDir=%s",
			cfg.GCSBucketName, cfg.GCSProjectID, cfg.GCSBaseDir)
	} else {
		localStorage, err := storage.NewLocalStorage(cfg.StorageDir)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		storageBackend = localStorage
		log.Printf("Storage initialized: Local directory=%s", cfg.StorageDir)
	}

	// Initialize metrics
	m := metrics.New()

	// Initialize gallery registry and converter
	galleries := gallerymanager.New()
	converter := convert.New(cfg.SkipTopics, m)
	converter.ProgressInterval = cfg.ProgressInterval

	openCapture := func(path string) (convert.CaptureSource, error) {
		return mcapreader.Open(path)
	}

	convertBatch := &convert.Batch{
		Converter:    converter,
		Store:        storageBackend,
		Galleries:    galleries,
		Metrics:      m,
		Open:         openCapture,
		RecordingDir: cfg.RecordingDir,
	}

	thumbBatch := &thumbnail.Batch{
		Extractor: &thumbnail.Extractor{
			Decoder: thumbnail.NewFFmpegDecoder(cfg.JPEGQuality),
			ScanCap: cfg.KeyframeScanCap,
			Metrics: m,
		},
		Store:        storageBackend,
		Galleries:    galleries,
		Metrics:      m,
		Open:         openCapture,
		ThumbnailDir: cfg.ThumbnailDir,
	}

	switch mode {
	case "convert":
		if len(os.Args) > 2 {
			if err := convertBatch.ConvertFile(os.Args[2]); err != nil {
				log.Fatalf("Conversion failed: %v", err)
			}
			return
		}
		if err := convertBatch.ConvertAll(cfg.CaptureDir); err != nil {
			log.Fatalf("Batch conversion failed: %v", err)
		}

	case "thumbs":
		if err := thumbnail.CheckFFmpegAvailable(); err != nil {
			log.Fatalf("FFmpeg check failed: %v", err)
		}
		if len(os.Args) > 2 {
			if _, err := thumbBatch.ExtractFile(os.Args[2]); err != nil {
				log.Fatalf("Thumbnail extraction failed: %v", err)
			}
			return
		}
		if err := thumbBatch.ExtractAll(cfg.CaptureDir); err != nil {
			log.Fatalf("Batch thumbnail extraction failed: %v", err)
		}

	case "serve":
		registerExisting(storageBackend, galleries, cfg)

		authManager := auth.New(cfg.DefaultTokenExpiration, cfg.MaxTokenExpiration)
		go authManager.StartCleanup(context.Background(), 10*time.Minute)

		srv := httpServer.New(galleries, authManager, storageBackend, m, cfg.PrivateGalleries, cfg.RecordingDir, cfg.ThumbnailDir)

		log.Println("API Endpoints:")
		log.Println("  GET  /api/ping")
		log.Println("  GET  /api/v1/galleries")
		log.Println("  GET  /api/v1/galleries/:name")
		log.Println("  POST /api/v1/galleries/:name/share")
		log.Println("  DELETE /api/v1/galleries/:name")
		log.Println("  GET  /files/rrd/:file")
		log.Println("  GET  /files/thumbnails/:file")
		log.Println("  GET  /metrics")

		if err := srv.Run(cfg.HTTPAddr); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}

	case "all":
		if err := convertBatch.ConvertAll(cfg.CaptureDir); err != nil {
			log.Fatalf("Batch conversion failed: %v", err)
		}
		if err := thumbnail.CheckFFmpegAvailable(); err != nil {
			log.Printf("Skipping thumbnails, FFmpeg unavailable: %v", err)
			return
		}
		if err := thumbBatch.ExtractAll(cfg.CaptureDir); err != nil {
			log.Fatalf("Batch thumbnail extraction failed: %v", err)
		}

	default:
		log.Fatalf("Unknown mode %q (expected convert, thumbs, serve or all)", mode)
	}
}

// registerExisting rebuilds the gallery registry from artifacts already in
// storage, so serve mode works across restarts
func registerExisting(store storage.Storage, galleries *gallerymanager.Manager, cfg *config.Config) {
	recordings, err := store.List(cfg.RecordingDir)
	if err != nil {
		log.Printf("No existing recordings found: %v", err)
		return
	}

	thumbs := make(map[string]string)
	if files, err := store.List(cfg.ThumbnailDir); err == nil {
		for _, f := range files {
			name := strings.TrimSuffix(strings.TrimSuffix(f, ".jpg"), ".png")
			thumbs[name] = cfg.ThumbnailDir + "/" + f
		}
	}

	registered := 0
	for _, f := range recordings {
		if !strings.HasSuffix(f, ".rrd") {
			continue
		}
		name := strings.TrimSuffix(f, ".rrd")
		g := galleries.Create(name, "")
		g.SetPaths(cfg.RecordingDir+"/"+f, thumbs[name])
		g.SetState(models.GalleryStateReady)
		registered++
	}
	log.Printf("Registered %d existing galleries", registered)
}
