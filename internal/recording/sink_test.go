package recording

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umigallery/pkg/models"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestFileSinkWritesHeaderAndEnvelopes(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf, "demo_session")

	sink.SetTime(1.5)
	require.NoError(t, sink.Log("cam/front", models.EncodedImage{MediaType: "image/jpeg", Data: []byte{0xFF, 0xD8}}))
	sink.SetTime(2.0)
	require.NoError(t, sink.Log("robot0/imu/angular_velocity", models.Scalars{Values: []float64{5}}))
	require.NoError(t, sink.Close())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "demo_session", lines[0]["recording"])
	assert.Equal(t, float64(1), lines[0]["version"])

	assert.Equal(t, 1.5, lines[1]["time"])
	assert.Equal(t, "cam/front", lines[1]["entity"])
	assert.Equal(t, "encoded_image", lines[1]["kind"])
	record := lines[1]["record"].(map[string]any)
	assert.Equal(t, "image/jpeg", record["mediaType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}), record["data"])

	assert.Equal(t, 2.0, lines[2]["time"])
	assert.Equal(t, "scalars", lines[2]["kind"])
}

func TestFileSinkRecordsShareTimeUntilSetTime(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf, "demo")

	sink.SetTime(3.25)
	require.NoError(t, sink.Log("a", models.TextLog{Text: "one"}))
	require.NoError(t, sink.Log("b", models.TextLog{Text: "two"}))
	require.NoError(t, sink.Close())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, 3.25, lines[1]["time"])
	assert.Equal(t, 3.25, lines[2]["time"])
}

func TestFileSinkEmptyRunStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf, "empty_session")

	require.NoError(t, sink.Close())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "empty_session", lines[0]["recording"])
}
