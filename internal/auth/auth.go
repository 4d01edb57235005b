package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"umigallery/pkg/models"
)

// Manager issues and validates gallery share tokens
type Manager struct {
	tokens map[string]*models.ShareToken // token -> ShareToken
	mu     sync.RWMutex

	// Config
	defaultExpiration time.Duration
	maxExpiration     time.Duration
}

// New creates a new auth manager
func New(defaultExpiration, maxExpiration time.Duration) *Manager {
	if defaultExpiration <= 0 {
		defaultExpiration = 1 * time.Hour
	}
	if maxExpiration <= 0 {
		maxExpiration = 24 * time.Hour
	}
	return &Manager{
		tokens:            make(map[string]*models.ShareToken),
		defaultExpiration: defaultExpiration,
		maxExpiration:     maxExpiration,
	}
}

// GenerateShareToken creates a new download token for a gallery
func (m *Manager) GenerateShareToken(galleryName string, expiresIn int, requesterIP string) (*models.ShareToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate secure random token
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	tokenString := hex.EncodeToString(tokenBytes)

	// Calculate expiration
	var expiration time.Duration
	if expiresIn > 0 {
		expiration = time.Duration(expiresIn) * time.Second
	} else {
		expiration = m.defaultExpiration
	}

	// Cap at max expiration
	if expiration > m.maxExpiration {
		expiration = m.maxExpiration
	}

	token := &models.ShareToken{
		Token:       tokenString,
		GalleryName: galleryName,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(expiration),
		RequesterIP: requesterIP,
	}

	m.tokens[tokenString] = token
	return token, nil
}

// ValidateToken checks that a token exists, has not expired, and grants
// access to the named gallery
func (m *Manager) ValidateToken(tokenString, galleryName string) bool {
	m.mu.RLock()
	token, exists := m.tokens[tokenString]
	m.mu.RUnlock()

	if !exists {
		return false
	}
	if !token.IsValid() {
		// Expired tokens are pruned on the next cleanup pass
		return false
	}
	return token.GalleryName == galleryName
}

// CleanupExpired removes expired tokens, returning how many were pruned
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for key, token := range m.tokens {
		if !token.IsValid() {
			delete(m.tokens, key)
			pruned++
		}
	}
	return pruned
}

// StartCleanup prunes expired tokens every interval until the context is
// cancelled. Run it in its own goroutine alongside the HTTP server.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pruned := m.CleanupExpired(); pruned > 0 {
				log.Printf("Pruned %d expired share tokens", pruned)
			}
		case <-ctx.Done():
			return
		}
	}
}

// TokenCount returns the number of outstanding tokens
func (m *Manager) TokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
