// Package thumbnail extracts a single representative frame from each capture
// file. For H.264 camera streams it assembles a standalone decodable keyframe
// (SPS + PPS + IDR) from the fragment stream and hands it to an external
// decoder; JPEG/PNG captures are written out verbatim.
package thumbnail

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"umigallery/internal/classify"
	"umigallery/internal/convert"
	"umigallery/internal/h264"
	"umigallery/internal/metrics"
	"umigallery/pkg/models"
)

// ErrNoThumbnail is reported when neither the keyframe scan nor any fallback
// produced an image. Non-fatal to a batch.
var ErrNoThumbnail = errors.New("no thumbnail could be extracted")

// FrameDecoder decodes one standalone H.264 unit to JPEG bytes. Decode is
// delegated externally; this package never parses bitstreams beyond NAL types.
type FrameDecoder interface {
	DecodeFrame(annexB []byte) ([]byte, error)
}

// Result is one extracted thumbnail
type Result struct {
	Data      []byte
	Ext       string // ".jpg" or ".png"
	MediaType string
}

// Extractor drives the keyframe scan and the fallback chain
type Extractor struct {
	Decoder FrameDecoder
	ScanCap int              // candidate fragments inspected before giving up
	Metrics *metrics.Metrics // optional
}

// Extract scans a capture for a thumbnail. open yields a fresh source each
// call; the fallback chain re-reads the capture from the start.
//
// Order: assembled keyframe -> first raw H.264 fragment -> first JPEG/PNG
// payload -> ErrNoThumbnail.
func (e *Extractor) Extract(open func() (convert.CaptureSource, error)) (*Result, error) {
	assembled, firstH264, err := e.scanKeyframe(open)
	if err != nil {
		return nil, err
	}

	if assembled != nil {
		if jpeg, err := e.Decoder.DecodeFrame(assembled); err == nil {
			return &Result{Data: jpeg, Ext: ".jpg", MediaType: "image/jpeg"}, nil
		} else {
			log.Printf("  Keyframe decode failed: %v", err)
		}
	}

	// Fallback (a): the very first H.264 fragment alone
	if firstH264 != nil {
		if jpeg, err := e.Decoder.DecodeFrame(firstH264); err == nil {
			return &Result{Data: jpeg, Ext: ".jpg", MediaType: "image/jpeg"}, nil
		} else {
			log.Printf("  First-fragment decode failed: %v", err)
		}
	}

	// Fallback (b): any still image in the capture, written out directly
	if res, err := e.scanStill(open); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	return nil, ErrNoThumbnail
}

// scanKeyframe runs the assembler over the H.264 fragments of the capture.
// Returns the ready buffer (nil if the scan cap ran out first) and the first
// H.264-classified payload seen, for fallback (a).
func (e *Extractor) scanKeyframe(open func() (convert.CaptureSource, error)) (assembled, firstH264 []byte, err error) {
	src, err := open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	asm := h264.NewKeyframeAssembler(e.ScanCap)
	for {
		img, err := nextImage(src)
		if err != nil {
			return nil, firstH264, err
		}
		if img == nil {
			break
		}
		if classify.Detect(img.Data, img.Format) != classify.FormatH264 {
			continue
		}
		if firstH264 == nil {
			firstH264 = img.Data
		}
		if !asm.Feed(img.Data) {
			break
		}
	}

	if e.Metrics != nil {
		e.Metrics.RecordKeyframeScan(asm.Inspected())
	}
	if !asm.Ready() {
		log.Printf("  No H.264 keyframe found in %d fragments", asm.Inspected())
		return nil, firstH264, nil
	}
	return asm.Bytes(), firstH264, nil
}

// scanStill re-reads the capture accepting the first JPEG or PNG payload
func (e *Extractor) scanStill(open func() (convert.CaptureSource, error)) (*Result, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	for {
		img, err := nextImage(src)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, nil
		}
		switch classify.Detect(img.Data, img.Format) {
		case classify.FormatJPEG:
			return &Result{Data: img.Data, Ext: ".jpg", MediaType: "image/jpeg"}, nil
		case classify.FormatPNG:
			return &Result{Data: img.Data, Ext: ".png", MediaType: "image/png"}, nil
		}
	}
}

// nextImage advances to the next compressed-image message, nil at end of file
func nextImage(src convert.MessageSource) (*models.CompressedImage, error) {
	for {
		msg, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("capture read failed during thumbnail scan: %w", err)
		}
		if !strings.Contains(msg.SchemaName, models.SchemaCompressedImage) {
			continue
		}
		if img, ok := msg.Decoded.(*models.CompressedImage); ok {
			return img, nil
		}
	}
}
