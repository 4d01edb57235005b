package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoStreamTracker(t *testing.T) {
	tracker := NewVideoStreamTracker()

	assert.True(t, tracker.EnsureInitialized("cam/front"), "first call initializes")
	assert.False(t, tracker.EnsureInitialized("cam/front"), "later calls do not")
	assert.True(t, tracker.EnsureInitialized("cam/rear"), "paths are independent")
	assert.False(t, tracker.EnsureInitialized("cam/rear"))
}

func TestVideoStreamTrackerPerRun(t *testing.T) {
	tracker := NewVideoStreamTracker()
	tracker.EnsureInitialized("cam/front")

	// A fresh tracker has no memory of earlier runs
	assert.True(t, NewVideoStreamTracker().EnsureInitialized("cam/front"))
}
