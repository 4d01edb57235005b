package models

import (
	"sync"
	"time"
)

// GalleryState represents the conversion state of one capture
type GalleryState string

const (
	GalleryStatePending    GalleryState = "pending"
	GalleryStateConverting GalleryState = "converting"
	GalleryStateReady      GalleryState = "ready"
	GalleryStateFailed     GalleryState = "failed"
)

// Gallery represents one capture file and its derived artifacts
type Gallery struct {
	Name          string       // capture file stem, e.g. "episode_000001"
	State         GalleryState // current conversion state
	CapturePath   string       // source .mcap path
	RecordingPath string       // converted recording path (relative to storage)
	ThumbnailPath string       // thumbnail path, empty if extraction failed
	ConvertedAt   time.Time    // when conversion finished
	Error         string       // failure reason when State is failed

	Stats RunStats // per-run summary counts

	mu sync.RWMutex
}

// SetState safely updates the gallery state
func (g *Gallery) SetState(state GalleryState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.State = state
	if state == GalleryStateReady || state == GalleryStateFailed {
		g.ConvertedAt = time.Now()
	}
}

// GetState safely returns the current gallery state
func (g *Gallery) GetState() GalleryState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.State
}

// SetStats records the conversion run summary
func (g *Gallery) SetStats(stats RunStats) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Stats = stats
}

// SetError marks the gallery failed with a reason
func (g *Gallery) SetError(reason string) {
	g.mu.Lock()
	g.Error = reason
	g.mu.Unlock()
	g.SetState(GalleryStateFailed)
}

// SetPaths records where the derived artifacts were written
func (g *Gallery) SetPaths(recordingPath, thumbnailPath string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if recordingPath != "" {
		g.RecordingPath = recordingPath
	}
	if thumbnailPath != "" {
		g.ThumbnailPath = thumbnailPath
	}
}

// Info returns an API-safe snapshot of the gallery
func (g *Gallery) Info() GalleryInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	info := GalleryInfo{
		Name:          g.Name,
		State:         string(g.State),
		RecordingPath: g.RecordingPath,
		ThumbnailPath: g.ThumbnailPath,
		Error:         g.Error,
		Processed:     g.Stats.Processed,
		Skipped:       g.Stats.Skipped,
		Unrecognized:  g.Stats.Unrecognized,
		Failed:        g.Stats.Failed,
		ByType:        g.Stats.ByType,
	}
	if !g.ConvertedAt.IsZero() {
		info.ConvertedAt = g.ConvertedAt.Format(time.RFC3339)
	}
	return info
}

// ShareToken represents a token granting download access to a gallery
type ShareToken struct {
	Token       string    // the actual token string
	GalleryName string    // gallery this token is valid for
	CreatedAt   time.Time // when token was created
	ExpiresAt   time.Time // when token expires
	RequesterIP string    // IP address that requested the token
}

// IsValid checks if the token is still valid
func (t *ShareToken) IsValid() bool {
	return time.Now().Before(t.ExpiresAt)
}

// ShareRequest represents a request to create a share token
type ShareRequest struct {
	ExpiresIn int `json:"expiresIn"` // seconds until expiration (default 3600)
}

// ShareResponse represents the response to a share request
type ShareResponse struct {
	Gallery   string `json:"gallery"`
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// GalleryInfo represents gallery metadata returned by the API
type GalleryInfo struct {
	Name          string         `json:"name"`
	State         string         `json:"state"`
	RecordingPath string         `json:"recordingPath,omitempty"`
	ThumbnailPath string         `json:"thumbnailPath,omitempty"`
	ConvertedAt   string         `json:"convertedAt,omitempty"`
	Error         string         `json:"error,omitempty"`
	Processed     uint64         `json:"processed"`
	Skipped       uint64         `json:"skipped"`
	Unrecognized  uint64         `json:"unrecognized"`
	Failed        uint64         `json:"failed"`
	ByType        map[string]int `json:"byType,omitempty"`
}

// GalleryListResponse represents a list of galleries
type GalleryListResponse struct {
	Galleries []GalleryInfo `json:"galleries"`
	Total     int           `json:"total"`
}
