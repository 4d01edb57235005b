package gallerymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umigallery/pkg/models"
)

func TestCreateIsIdempotent(t *testing.T) {
	m := New()

	g1 := m.Create("episode_000001", "public/mcap/episode_000001.mcap")
	g1.SetState(models.GalleryStateReady)

	g2 := m.Create("episode_000001", "somewhere/else.mcap")
	assert.Same(t, g1, g2, "a re-run updates the existing entry")
	assert.Equal(t, models.GalleryStateReady, g2.GetState())
	assert.Equal(t, 1, m.Count())
}

func TestGetAllSorted(t *testing.T) {
	m := New()
	m.Create("episode_000003", "")
	m.Create("episode_000001", "")
	m.Create("episode_000002", "")

	all := m.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "episode_000001", all[0].Name)
	assert.Equal(t, "episode_000002", all[1].Name)
	assert.Equal(t, "episode_000003", all[2].Name)
}

func TestGetReady(t *testing.T) {
	m := New()
	m.Create("pending", "")
	m.Create("done", "").SetState(models.GalleryStateReady)
	m.Create("broken", "").SetError("decode failed")

	ready := m.GetReady()
	require.Len(t, ready, 1)
	assert.Equal(t, "done", ready[0].Name)
}

func TestDelete(t *testing.T) {
	m := New()
	m.Create("episode_000001", "")

	require.NoError(t, m.Delete("episode_000001"))
	_, exists := m.Get("episode_000001")
	assert.False(t, exists)

	assert.Error(t, m.Delete("episode_000001"), "deleting twice reports not found")
}
