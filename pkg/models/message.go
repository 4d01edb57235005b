package models

// Message is one decoded entry from a capture file: a topic, the name of the
// schema its channel was tagged with at capture time, the log time in integer
// nanoseconds, and the decoded payload.
//
// Decoded is a tagged union keyed by SchemaName: handlers assert the concrete
// shape only after a schema-name match. For channels whose schema the reader
// does not model (or whose decode failed), Decoded is nil.
type Message struct {
	Topic      string // channel topic, e.g. "/cam/front"
	SchemaName string // schema name, empty if the channel carried none
	LogTime    uint64 // capture log time in nanoseconds
	Decoded    any    // one of the payload shapes below, or nil
}

// Schema name markers. Routing matches these as substrings against the full
// schema name (e.g. "foxglove.CompressedImage"), in SchemaMarkers order.
const (
	SchemaCompressedImage   = "CompressedImage"
	SchemaPoseInFrame       = "PoseInFrame"
	SchemaIMUMeasurement    = "IMUMeasurement"
	SchemaCameraCalibration = "CameraCalibration"
	SchemaMagneticEncoder   = "MagneticEncoderMeasurement"
)

// SchemaMarkers is the fixed, ordered list of recognized markers; first match wins
var SchemaMarkers = []string{
	SchemaCompressedImage,
	SchemaPoseInFrame,
	SchemaIMUMeasurement,
	SchemaCameraCalibration,
	SchemaMagneticEncoder,
}

// Vec3 is a 3-component vector field from a decoded payload
type Vec3 struct {
	X, Y, Z float64
}

// Quat is an xyzw quaternion field from a decoded payload
type Quat struct {
	X, Y, Z, W float64
}

// Payload shapes. Each recognized schema name maps to a fixed field set;
// pointer fields are nil when the capture omitted them, and a handler that
// requires them reports a recoverable per-message error.

// CompressedImage carries camera data: JPEG/PNG stills or H.264 fragments
type CompressedImage struct {
	Format string // encoder-provided hint, e.g. "h264"; may be empty
	Data   []byte // opaque payload, classified by magic bytes
}

// PoseInFrame carries an end-effector pose
type PoseInFrame struct {
	FrameID     string
	Position    *Vec3
	Orientation *Quat
}

// IMUMeasurement carries inertial data
type IMUMeasurement struct {
	AngularVelocity    *Vec3
	LinearAcceleration *Vec3
}

// CameraCalibration carries camera intrinsics; only the dimensions are logged
type CameraCalibration struct {
	Width  uint32
	Height uint32
}

// MagneticEncoderMeasurement carries a single encoder reading
type MagneticEncoderMeasurement struct {
	Value float64
}

// RunStats summarizes one conversion run
type RunStats struct {
	Processed    uint64         // messages that reached a handler and succeeded
	Skipped      uint64         // messages dropped by the topic skip list
	Unrecognized uint64         // messages whose schema matched no handler
	Failed       uint64         // messages whose handler reported an error
	ByType       map[string]int // successful messages per schema marker
}
