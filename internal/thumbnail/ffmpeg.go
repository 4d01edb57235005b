package thumbnail

import (
	"bytes"
	"fmt"
	"log"
	"os/exec"
)

// FFmpegDecoder decodes a standalone H.264 unit to JPEG using an ffmpeg
// subprocess over pipes. This keeps actual pixel decode out of process; the
// input must already be a decodable Annex-B sequence (SPS/PPS/IDR).
type FFmpegDecoder struct {
	// Quality is the mjpeg qscale (2 best .. 31 worst); 0 selects 2
	Quality int
}

// NewFFmpegDecoder creates a decoder from a 0-100 JPEG quality setting,
// mapped onto the mjpeg qscale range
func NewFFmpegDecoder(jpegQuality int) *FFmpegDecoder {
	return &FFmpegDecoder{Quality: qscaleFromJPEGQuality(jpegQuality)}
}

// qscaleFromJPEGQuality maps a 0-100 JPEG quality (higher is better) to
// ffmpeg's 2 (best) to 31 (worst) qscale. Out-of-range values fall back to
// quality 85.
func qscaleFromJPEGQuality(quality int) int {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return 31 - (quality*29)/100
}

// DecodeFrame decodes the first frame of the H.264 data to JPEG bytes
func (d *FFmpegDecoder) DecodeFrame(annexB []byte) ([]byte, error) {
	if len(annexB) == 0 {
		return nil, fmt.Errorf("no H.264 data to decode")
	}

	quality := d.Quality
	if quality <= 0 {
		quality = 2
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "h264", // input is raw Annex-B H.264
		"-i", "pipe:0", // read from stdin
		"-frames:v", "1", // only the first decodable frame
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", fmt.Sprintf("%d", quality),
		"pipe:1", // write to stdout
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	_, writeErr := stdin.Write(annexB)
	stdin.Close()
	if writeErr != nil {
		log.Printf("Warning: error writing to ffmpeg stdin: %v", writeErr)
	}

	waitErr := cmd.Wait()
	if stderrOutput := stderr.String(); len(stderrOutput) > 0 {
		log.Printf("FFmpeg decode stderr: %s", stderrOutput)
	}

	jpeg := stdout.Bytes()
	if len(jpeg) == 0 {
		if waitErr != nil {
			return nil, fmt.Errorf("ffmpeg decode failed: %w", waitErr)
		}
		return nil, fmt.Errorf("ffmpeg produced no output")
	}

	// A decode that errored after emitting a frame is still usable
	if waitErr != nil {
		log.Printf("FFmpeg returned error but produced %d bytes, using it anyway", len(jpeg))
	}

	return jpeg, nil
}

// CheckFFmpegAvailable checks if FFmpeg is installed and available
func CheckFFmpegAvailable() error {
	cmd := exec.Command("ffmpeg", "-version")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not working: %w\nStderr: %s", err, stderr.String())
	}
	if len(output) == 0 {
		return fmt.Errorf("ffmpeg produced no output")
	}
	return nil
}
