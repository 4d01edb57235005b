package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		hint string
		want MediaFormat
	}{
		{
			name: "h264 hint wins regardless of bytes",
			data: []byte{0xDE, 0xAD, 0xBE, 0xEF},
			hint: "h264",
			want: FormatH264,
		},
		{
			name: "annex-b start code without hint",
			data: []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42},
			want: FormatH264,
		},
		{
			name: "jpeg magic",
			data: []byte{0xFF, 0xD8, 0xFF, 0xE0},
			want: FormatJPEG,
		},
		{
			name: "jpeg hint does not override png magic",
			data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			hint: "jpeg",
			want: FormatPNG,
		},
		{
			name: "png signature",
			data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			want: FormatPNG,
		},
		{
			name: "truncated png signature falls through",
			data: []byte{0x89, 0x50, 0x4E},
			want: FormatUnknownJPEG,
		},
		{
			name: "empty payload",
			data: nil,
			want: FormatUnknownJPEG,
		},
		{
			name: "arbitrary bytes",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			want: FormatUnknownJPEG,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data, tt.hint))
		})
	}
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.MediaType())
	assert.Equal(t, "image/jpeg", FormatJPEG.MediaType())
	assert.Equal(t, "image/jpeg", FormatH264.MediaType())
	assert.Equal(t, "image/jpeg", FormatUnknownJPEG.MediaType())
}

func TestString(t *testing.T) {
	assert.Equal(t, "h264", FormatH264.String())
	assert.Equal(t, "jpeg", FormatJPEG.String())
	assert.Equal(t, "png", FormatPNG.String())
	assert.Equal(t, "unknown(jpeg)", FormatUnknownJPEG.String())
}
