package thumbnail

import (
	"fmt"
	"log"
	"path"
	"path/filepath"

	"umigallery/internal/convert"
	"umigallery/internal/gallerymanager"
	"umigallery/internal/metrics"
	"umigallery/internal/storage"
)

// Batch extracts a thumbnail for every capture file in a directory. An
// extraction failure is reported per file and never stops the batch.
type Batch struct {
	Extractor *Extractor
	Store     storage.Storage
	Galleries *gallerymanager.Manager
	Metrics   *metrics.Metrics // optional

	// Open yields a fresh message source for a capture file path
	Open func(capturePath string) (convert.CaptureSource, error)

	// ThumbnailDir is the storage-relative directory for thumbnails
	ThumbnailDir string
}

// ExtractAll processes every *.mcap file under captureDir sequentially
func (b *Batch) ExtractAll(captureDir string) error {
	files, err := filepath.Glob(filepath.Join(captureDir, "*.mcap"))
	if err != nil {
		return fmt.Errorf("failed to list capture files: %w", err)
	}
	log.Printf("Found %d capture files for thumbnail extraction", len(files))

	extracted := 0
	for _, file := range files {
		if _, err := b.ExtractFile(file); err != nil {
			log.Printf("  ERROR extracting thumbnail from %s: %v", file, err)
			continue
		}
		extracted++
	}

	log.Printf("Thumbnail extraction complete: %d/%d", extracted, len(files))
	return nil
}

// ExtractFile extracts one thumbnail and writes it to storage, returning the
// storage-relative path
func (b *Batch) ExtractFile(capturePath string) (string, error) {
	name := convert.CaptureName(capturePath)
	log.Printf("Extracting thumbnail from: %s", capturePath)

	res, err := b.Extractor.Extract(func() (convert.CaptureSource, error) {
		return b.Open(capturePath)
	})
	if err != nil {
		if b.Metrics != nil {
			b.Metrics.RecordThumbnail(false)
		}
		return "", err
	}

	thumbPath := path.Join(b.ThumbnailDir, name+res.Ext)
	if err := b.Store.Write(thumbPath, res.Data); err != nil {
		if b.Metrics != nil {
			b.Metrics.RecordThumbnail(false)
		}
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if gallery, ok := b.Galleries.Get(name); ok {
		gallery.SetPaths("", thumbPath)
	}
	if b.Metrics != nil {
		b.Metrics.RecordThumbnail(true)
	}

	log.Printf("  Saved: %s", thumbPath)
	return thumbPath, nil
}
