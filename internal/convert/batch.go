package convert

import (
	"bytes"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"umigallery/internal/gallerymanager"
	"umigallery/internal/metrics"
	"umigallery/internal/recording"
	"umigallery/internal/storage"
	"umigallery/pkg/models"
)

// Batch converts every capture file in a directory, one at a time. A failure
// converting one file is logged and must not prevent attempting the next.
type Batch struct {
	Converter *Converter
	Store     storage.Storage
	Galleries *gallerymanager.Manager
	Metrics   *metrics.Metrics // optional

	// Open yields a fresh message source for a capture file path
	Open func(capturePath string) (CaptureSource, error)

	// RecordingDir is the storage-relative directory for recordings
	RecordingDir string
}

// ConvertAll converts every *.mcap file under captureDir sequentially
func (b *Batch) ConvertAll(captureDir string) error {
	files, err := filepath.Glob(filepath.Join(captureDir, "*.mcap"))
	if err != nil {
		return fmt.Errorf("failed to list capture files: %w", err)
	}
	log.Printf("Found %d capture files to convert", len(files))

	converted := 0
	for _, file := range files {
		if err := b.ConvertFile(file); err != nil {
			log.Printf("ERROR converting %s: %v", file, err)
			continue
		}
		converted++
	}

	log.Printf("Batch conversion complete: %d/%d files converted", converted, len(files))
	return nil
}

// ConvertFile converts a single capture file into a recording and registers
// the result with the gallery manager
func (b *Batch) ConvertFile(capturePath string) error {
	name := CaptureName(capturePath)
	gallery := b.Galleries.Create(name, capturePath)
	gallery.SetState(models.GalleryStateConverting)

	log.Printf("Converting: %s", capturePath)
	started := time.Now()

	src, err := b.Open(capturePath)
	if err != nil {
		// Container-level failure: fatal for this file only
		gallery.SetError(err.Error())
		if b.Metrics != nil {
			b.Metrics.RecordConversion(0, 0, false)
		}
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	sink := recording.NewFileSink(&buf, name)

	stats, runErr := b.Converter.Run(src, sink)
	if closeErr := sink.Close(); runErr == nil {
		runErr = closeErr
	}
	gallery.SetStats(stats)

	if runErr != nil {
		gallery.SetError(runErr.Error())
		if b.Metrics != nil {
			b.Metrics.RecordConversion(0, 0, false)
		}
		return runErr
	}

	recordingPath := path.Join(b.RecordingDir, name+".rrd")
	if err := b.Store.Write(recordingPath, buf.Bytes()); err != nil {
		gallery.SetError(err.Error())
		if b.Metrics != nil {
			b.Metrics.RecordConversion(0, 0, false)
		}
		return fmt.Errorf("failed to write recording: %w", err)
	}

	gallery.SetPaths(recordingPath, "")
	gallery.SetState(models.GalleryStateReady)
	if b.Metrics != nil {
		b.Metrics.RecordConversion(time.Since(started).Seconds(), int64(buf.Len()), true)
	}

	log.Printf("Conversion complete: %s", recordingPath)
	log.Printf("  Total logged: %d", stats.Processed)
	log.Printf("  Skipped (problematic): %d", stats.Skipped)
	log.Printf("  Unrecognized schemas: %d, failed: %d", stats.Unrecognized, stats.Failed)
	log.Printf("  By type: %v", stats.ByType)
	return nil
}

// CaptureName returns the gallery name for a capture path: the file stem
func CaptureName(capturePath string) string {
	base := filepath.Base(capturePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
