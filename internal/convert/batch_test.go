package convert

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umigallery/internal/gallerymanager"
	"umigallery/internal/storage"
	"umigallery/pkg/models"
)

type closeableSource struct {
	sliceSource
	closed bool
}

func (c *closeableSource) Close() error {
	c.closed = true
	return nil
}

func newTestBatch(t *testing.T, msgs []*models.Message) (*Batch, *closeableSource) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	src := &closeableSource{sliceSource: sliceSource{msgs: msgs}}
	return &Batch{
		Converter:    newTestConverter(),
		Store:        store,
		Galleries:    gallerymanager.New(),
		Open:         func(string) (CaptureSource, error) { return src, nil },
		RecordingDir: "rrd",
	}, src
}

func TestConvertFile(t *testing.T) {
	b, src := newTestBatch(t, []*models.Message{
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8, 0x01}, 1_000_000_000),
		{Topic: "/robot0/system_info", SchemaName: "foxglove.CompressedImage"},
	})

	require.NoError(t, b.ConvertFile("public/mcap/episode_000001.mcap"))
	assert.True(t, src.closed)

	gallery, exists := b.Galleries.Get("episode_000001")
	require.True(t, exists)
	assert.Equal(t, models.GalleryStateReady, gallery.GetState())
	assert.Equal(t, "rrd/episode_000001.rrd", gallery.RecordingPath)
	assert.Equal(t, uint64(1), gallery.Stats.Processed)
	assert.Equal(t, uint64(1), gallery.Stats.Skipped)

	data, err := b.Store.Read("rrd/episode_000001.rrd")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "header plus one record")
	assert.Contains(t, lines[0], `"recording":"episode_000001"`)
	assert.Contains(t, lines[1], `"entity":"cam/front"`)
}

func TestConvertFileOpenFailure(t *testing.T) {
	b, _ := newTestBatch(t, nil)
	b.Open = func(string) (CaptureSource, error) { return nil, errors.New("not an mcap file") }

	err := b.ConvertFile("public/mcap/broken.mcap")
	require.Error(t, err)

	gallery, exists := b.Galleries.Get("broken")
	require.True(t, exists)
	assert.Equal(t, models.GalleryStateFailed, gallery.GetState())
	assert.Contains(t, gallery.Error, "not an mcap file")
}

func TestConvertFileReadFailure(t *testing.T) {
	b, src := newTestBatch(t, []*models.Message{
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 0),
	})
	src.err = errors.New("truncated chunk")

	err := b.ConvertFile("public/mcap/episode_000002.mcap")
	require.Error(t, err)

	gallery, _ := b.Galleries.Get("episode_000002")
	assert.Equal(t, models.GalleryStateFailed, gallery.GetState())

	exists, statErr := b.Store.Exists("rrd/episode_000002.rrd")
	require.NoError(t, statErr)
	assert.False(t, exists, "no recording is written for a failed run")
}

func TestCaptureName(t *testing.T) {
	assert.Equal(t, "episode_000001", CaptureName("public/mcap/episode_000001.mcap"))
	assert.Equal(t, "session", CaptureName("session.mcap"))
	assert.Equal(t, "no_ext", CaptureName("/data/no_ext"))
}
