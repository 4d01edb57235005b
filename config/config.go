package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Directories (gallery layout)
	CaptureDir   string // input .mcap files (filesystem path)
	RecordingDir string // converted .rrd recordings, relative to storage
	ThumbnailDir string // extracted thumbnails, relative to storage

	// Conversion
	SkipTopics       []string // channels excluded before any processing
	KeyframeScanCap  int      // candidate fragments inspected before giving up
	ProgressInterval int      // log progress every N messages

	// Thumbnails
	JPEGQuality int

	// HTTP API
	HTTPAddr string

	// PrivateGalleries requires a share token for file downloads
	PrivateGalleries bool

	// Storage
	StorageType string // "local" or "gcs"
	StorageDir  string

	// GCS
	GCSProjectID  string
	GCSBucketName string
	GCSBaseDir    string

	// Share tokens
	DefaultTokenExpiration time.Duration
	MaxTokenExpiration     time.Duration
}

// DefaultSkipTopics are the channels whose schema shape we do not model and
// which break generic conversion. Matching the source dataset's layout.
var DefaultSkipTopics = []string{
	"/robot0/sim/robot_info",
	"/robot1/sim/robot_info",
	"/robot0/system_info",
	"/robot1/system_info",
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		CaptureDir:             getEnv("CAPTURE_DIR", "public/mcap"),
		RecordingDir:           getEnv("RECORDING_DIR", "rrd"),
		ThumbnailDir:           getEnv("THUMBNAIL_DIR", "thumbnails"),
		SkipTopics:             getListEnv("SKIP_TOPICS", DefaultSkipTopics),
		KeyframeScanCap:        getIntEnv("KEYFRAME_SCAN_CAP", 100),
		ProgressInterval:       getIntEnv("PROGRESS_INTERVAL", 5000),
		JPEGQuality:            getIntEnv("JPEG_QUALITY", 85),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		PrivateGalleries:       getBoolEnv("PRIVATE_GALLERIES", false),
		StorageType:            getEnv("STORAGE_TYPE", "local"),
		StorageDir:             getEnv("STORAGE_DIR", "public"),
		GCSProjectID:           getEnv("GCS_PROJECT_ID", ""),
		GCSBucketName:          getEnv("GCS_BUCKET_NAME", ""),
		GCSBaseDir:             getEnv("GCS_BASE_DIR", "gallery"),
		DefaultTokenExpiration: getDurationEnv("DEFAULT_TOKEN_EXPIRATION", 1*time.Hour),
		MaxTokenExpiration:     getDurationEnv("MAX_TOKEN_EXPIRATION", 24*time.Hour),
	}
}

// Helper functions to get environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		if len(list) > 0 {
			return list
		}
	}
	return defaultValue
}
