package gallerymanager

import (
	"fmt"
	"sort"
	"sync"

	"umigallery/pkg/models"
)

// Manager maintains the in-memory registry of galleries: one entry per
// capture file, carrying conversion state, stats and artifact paths. The
// batch converter writes entries while the HTTP API reads them.
type Manager struct {
	galleries map[string]*models.Gallery // name -> Gallery
	mu        sync.RWMutex
}

// New creates a new gallery manager
func New() *Manager {
	return &Manager{
		galleries: make(map[string]*models.Gallery),
	}
}

// Create registers a gallery for a capture file, or returns the existing
// entry so a re-run updates in place
func (m *Manager) Create(name, capturePath string) *models.Gallery {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, exists := m.galleries[name]; exists {
		return g
	}

	g := &models.Gallery{
		Name:        name,
		State:       models.GalleryStatePending,
		CapturePath: capturePath,
	}
	m.galleries[name] = g
	return g
}

// Get retrieves a gallery by name
func (m *Manager) Get(name string) (*models.Gallery, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, exists := m.galleries[name]
	return g, exists
}

// GetAll returns all galleries sorted by name
func (m *Manager) GetAll() []*models.Gallery {
	m.mu.RLock()
	defer m.mu.RUnlock()

	galleries := make([]*models.Gallery, 0, len(m.galleries))
	for _, g := range m.galleries {
		galleries = append(galleries, g)
	}
	sort.Slice(galleries, func(i, j int) bool { return galleries[i].Name < galleries[j].Name })

	return galleries
}

// GetReady returns only galleries whose conversion finished successfully
func (m *Manager) GetReady() []*models.Gallery {
	all := m.GetAll()
	ready := make([]*models.Gallery, 0, len(all))
	for _, g := range all {
		if g.GetState() == models.GalleryStateReady {
			ready = append(ready, g)
		}
	}
	return ready
}

// Delete removes a gallery from the registry
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.galleries[name]; !exists {
		return fmt.Errorf("gallery %s not found", name)
	}
	delete(m.galleries, name)
	return nil
}

// Count returns the total number of galleries
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.galleries)
}
