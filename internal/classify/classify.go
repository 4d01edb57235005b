// Package classify sniffs the binary format of opaque media payloads.
package classify

import "bytes"

// MediaFormat is the tag produced for a payload. Every byte sequence maps to
// exactly one tag; sequences shorter than a signature simply fail that check.
type MediaFormat int

const (
	// FormatH264 is an Annex-B H.264 fragment
	FormatH264 MediaFormat = iota
	// FormatJPEG is a JPEG still
	FormatJPEG
	// FormatPNG is a PNG still
	FormatPNG
	// FormatUnknownJPEG is the fallback for unrecognized bytes. Downstream
	// treats it as JPEG (some encoders omit proper magic), but the tag stays
	// distinguishable for diagnostics.
	FormatUnknownJPEG
)

// String returns the tag name for logging
func (f MediaFormat) String() string {
	switch f {
	case FormatH264:
		return "h264"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	default:
		return "unknown(jpeg)"
	}
}

// MediaType returns the media type string emitted with encoded-image records
func (f MediaFormat) MediaType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Signatures checked against payload prefixes
var (
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
	jpegMagic  = []byte{0xFF, 0xD8}
	pngMagic   = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// Detect classifies a payload. The format hint comes from the capture message
// itself (e.g. CompressedImage.format) and wins for "h264"; otherwise the
// first matching magic-byte check decides.
func Detect(data []byte, hint string) MediaFormat {
	if hint == "h264" || bytes.HasPrefix(data, startCode4) {
		return FormatH264
	}
	if bytes.HasPrefix(data, jpegMagic) {
		return FormatJPEG
	}
	if bytes.HasPrefix(data, pngMagic) {
		return FormatPNG
	}
	return FormatUnknownJPEG
}
