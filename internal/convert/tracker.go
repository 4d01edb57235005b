package convert

// VideoStreamTracker records which entity paths have had their video stream
// codec-initialized during one conversion run. One tracker per run; it is
// owned by the single dispatch loop and never shared, so no locking.
type VideoStreamTracker struct {
	initialized map[string]bool
}

// NewVideoStreamTracker creates an empty tracker
func NewVideoStreamTracker() *VideoStreamTracker {
	return &VideoStreamTracker{initialized: make(map[string]bool)}
}

// EnsureInitialized reports whether this is the first call for the entity
// path. On a first call the caller must emit one initialization record before
// (or together with) the first sample; every later call for the same path
// returns false.
func (t *VideoStreamTracker) EnsureInitialized(entityPath string) bool {
	if t.initialized[entityPath] {
		return false
	}
	t.initialized[entityPath] = true
	return true
}
