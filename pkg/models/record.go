package models

// Record is one timestamped, entity-path-addressed entry in the visualization
// log. Exactly one concrete kind per record.
type Record interface {
	// Kind returns the record kind tag used by sinks and metrics
	Kind() string
}

// EncodedImage is a still image payload with its media type
type EncodedImage struct {
	MediaType string `json:"mediaType"` // "image/jpeg" or "image/png"
	Data      []byte `json:"data"`
}

func (EncodedImage) Kind() string { return "encoded_image" }

// VideoStreamInit declares the codec for an entity's video stream. Emitted at
// most once per entity path per run, before the first sample.
type VideoStreamInit struct {
	Codec string `json:"codec"` // "h264"
}

func (VideoStreamInit) Kind() string { return "video_stream_init" }

// VideoStreamSample is one encoded video fragment on an initialized stream
type VideoStreamSample struct {
	Codec string `json:"codec"`
	Data  []byte `json:"data"`
}

func (VideoStreamSample) Kind() string { return "video_stream_sample" }

// Transform3D positions an entity in 3D space
type Transform3D struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"` // xyzw quaternion
}

func (Transform3D) Kind() string { return "transform3d" }

// Points3D is a set of 3D points with optional colors and radii
type Points3D struct {
	Positions [][3]float64 `json:"positions"`
	Colors    [][3]uint8   `json:"colors,omitempty"`
	Radii     []float64    `json:"radii,omitempty"`
}

func (Points3D) Kind() string { return "points3d" }

// Scalars is one or more scalar samples on a timeline
type Scalars struct {
	Values []float64 `json:"values"`
}

func (Scalars) Kind() string { return "scalars" }

// TextLog is a free-form text annotation
type TextLog struct {
	Text string `json:"text"`
}

func (TextLog) Kind() string { return "text_log" }
