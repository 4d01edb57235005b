package convert

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umigallery/pkg/models"
)

// ---------------------------------------------------------------------------
// Fake source and sink
// ---------------------------------------------------------------------------

type sliceSource struct {
	msgs []*models.Message
	pos  int
	err  error // returned once the messages are drained, instead of io.EOF
}

func (s *sliceSource) Next() (*models.Message, error) {
	if s.pos >= len(s.msgs) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	msg := s.msgs[s.pos]
	s.pos++
	return msg, nil
}

type loggedRecord struct {
	time   float64
	entity string
	rec    models.Record
}

type memorySink struct {
	seconds float64
	records []loggedRecord
	failOn  string // record kind that fails to log
}

func (s *memorySink) SetTime(seconds float64) { s.seconds = seconds }

func (s *memorySink) Log(entityPath string, rec models.Record) error {
	if s.failOn != "" && rec.Kind() == s.failOn {
		return errors.New("sink write failed")
	}
	s.records = append(s.records, loggedRecord{time: s.seconds, entity: entityPath, rec: rec})
	return nil
}

func (s *memorySink) Close() error { return nil }

// ---------------------------------------------------------------------------
// Message builders
// ---------------------------------------------------------------------------

func imageMsg(topic, format string, data []byte, logTime uint64) *models.Message {
	return &models.Message{
		Topic:      topic,
		SchemaName: "foxglove.CompressedImage",
		LogTime:    logTime,
		Decoded:    &models.CompressedImage{Format: format, Data: data},
	}
}

func poseMsg(topic string, pos *models.Vec3, orient *models.Quat) *models.Message {
	return &models.Message{
		Topic:      topic,
		SchemaName: "foxglove.PoseInFrame",
		Decoded:    &models.PoseInFrame{FrameID: "world", Position: pos, Orientation: orient},
	}
}

func h264Fragment(payload ...byte) []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x01, 0x65}, payload...)
}

func newTestConverter() *Converter {
	c := New([]string{"/robot0/system_info", "/robot1/system_info"}, nil)
	c.ProgressInterval = 0
	return c
}

// ---------------------------------------------------------------------------
// Run loop
// ---------------------------------------------------------------------------

func TestRunSkipList(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{Topic: "/robot0/system_info", SchemaName: "foxglove.CompressedImage"},
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8, 0x01}, 0),
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Len(t, sink.records, 1, "skipped messages emit nothing")
}

func TestRunUnrecognizedSchema(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{Topic: "/diag/battery", SchemaName: "custom.BatteryState"},
		{Topic: "/diag/empty", SchemaName: ""},
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.Unrecognized)
	assert.Zero(t, stats.Processed)
	assert.Empty(t, sink.records)
}

func TestRunTimestampConversion(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 1_500_000_000),
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	assert.Equal(t, 1.5, sink.records[0].time)
}

func TestRunReadErrorIsFatal(t *testing.T) {
	src := &sliceSource{
		msgs: []*models.Message{imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 0)},
		err:  errors.New("truncated chunk"),
	}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated chunk")
	assert.Equal(t, uint64(1), stats.Processed, "stats up to the failure are preserved")
}

func TestRunFailureContainment(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		poseMsg("/robot0/vio/eef_pose", &models.Vec3{X: 1}, nil), // missing orientation
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 0),
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err, "a malformed message never aborts the run")

	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Processed)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "encoded_image", sink.records[0].rec.Kind())
}

func TestRunByTypeAccounting(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 0),
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8}, 1),
		{
			Topic:      "/robot0/encoder",
			SchemaName: "umi.MagneticEncoderMeasurement",
			Decoded:    &models.MagneticEncoderMeasurement{Value: 0.25},
		},
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), stats.Processed)
	assert.Equal(t, 2, stats.ByType[models.SchemaCompressedImage])
	assert.Equal(t, 1, stats.ByType[models.SchemaMagneticEncoder])
}

func TestRunSkipThenStillThenVideo(t *testing.T) {
	spsFrag := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA}
	src := &sliceSource{msgs: []*models.Message{
		{Topic: "/robot0/system_info", SchemaName: "umi.SystemInfo"},
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8, 0x01}, 0),
		imageMsg("/cam/front", "", spsFrag, 1),
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, uint64(2), stats.Processed)

	require.Len(t, sink.records, 3)
	assert.Equal(t, "encoded_image", sink.records[0].rec.Kind())
	assert.Equal(t, models.VideoStreamInit{Codec: "h264"}, sink.records[1].rec)
	assert.Equal(t, models.VideoStreamSample{Codec: "h264", Data: spsFrag}, sink.records[2].rec)
	for _, r := range sink.records {
		assert.Equal(t, "cam/front", r.entity)
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func TestHandleImageStill(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		imageMsg("/cam/front", "", []byte{0xFF, 0xD8, 0xAA}, 0),
		imageMsg("/cam/rear", "", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0),
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 2)
	assert.Equal(t, "cam/front", sink.records[0].entity)

	jpeg, ok := sink.records[0].rec.(models.EncodedImage)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", jpeg.MediaType)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xAA}, jpeg.Data)

	png, ok := sink.records[1].rec.(models.EncodedImage)
	require.True(t, ok)
	assert.Equal(t, "image/png", png.MediaType)
}

func TestHandleImageVideoStream(t *testing.T) {
	frag1 := h264Fragment(0x01)
	frag2 := h264Fragment(0x02)
	src := &sliceSource{msgs: []*models.Message{
		imageMsg("/cam/front", "h264", frag1, 0),
		imageMsg("/cam/front", "h264", frag2, 1),
		imageMsg("/cam/rear", "h264", frag1, 2),
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	// Init once per entity, then samples; a second entity gets its own init
	require.Len(t, sink.records, 5)
	assert.Equal(t, models.VideoStreamInit{Codec: "h264"}, sink.records[0].rec)
	assert.Equal(t, "cam/front", sink.records[0].entity)
	assert.Equal(t, models.VideoStreamSample{Codec: "h264", Data: frag1}, sink.records[1].rec)
	assert.Equal(t, models.VideoStreamSample{Codec: "h264", Data: frag2}, sink.records[2].rec)
	assert.Equal(t, models.VideoStreamInit{Codec: "h264"}, sink.records[3].rec)
	assert.Equal(t, "cam/rear", sink.records[3].entity)
}

func TestHandleImageFallbackJPEG(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		imageMsg("/cam/front", "", []byte{0x01, 0x02, 0x03}, 0), // no magic at all
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	img, ok := sink.records[0].rec.(models.EncodedImage)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", img.MediaType, "unrecognized payloads are treated as JPEG")
}

func TestHandlePose(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		poseMsg("/robot0/vio/eef_pose",
			&models.Vec3{X: 1, Y: 2, Z: 3},
			&models.Quat{X: 0, Y: 0, Z: 0, W: 1}),
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 2)

	assert.Equal(t, "robot0/vio/eef_pose", sink.records[0].entity)
	transform, ok := sink.records[0].rec.(models.Transform3D)
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, transform.Translation)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, transform.Rotation)

	assert.Equal(t, "robot0/z_trajectory", sink.records[1].entity)
	points, ok := sink.records[1].rec.(models.Points3D)
	require.True(t, ok)
	assert.Equal(t, [][3]float64{{1, 2, 3}}, points.Positions)
	assert.Equal(t, []float64{0.005}, points.Radii)
	assert.Equal(t, [][3]uint8{{100, 200, 255}}, points.Colors)
}

func TestHandlePoseMissingFields(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.Message
	}{
		{"missing position", poseMsg("/robot0/vio/eef_pose", nil, &models.Quat{W: 1})},
		{"missing orientation", poseMsg("/robot0/vio/eef_pose", &models.Vec3{X: 1}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memorySink{}
			stats, err := newTestConverter().Run(&sliceSource{msgs: []*models.Message{tt.msg}}, sink)
			require.NoError(t, err)

			assert.Equal(t, uint64(1), stats.Failed)
			assert.Empty(t, sink.records, "a malformed pose emits nothing")
		})
	}
}

func TestHandlePoseSinkFailureEmitsNothingElse(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		poseMsg("/robot0/vio/eef_pose", &models.Vec3{X: 1}, &models.Quat{W: 1}),
	}}
	sink := &memorySink{failOn: "transform3d"}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Failed)
	assert.Empty(t, sink.records, "the trajectory point is not logged when the transform fails")
}

func TestHandleIMU(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{
			Topic:      "/robot0/imu",
			SchemaName: "umi.IMUMeasurement",
			Decoded: &models.IMUMeasurement{
				AngularVelocity:    &models.Vec3{X: 3, Y: 4, Z: 0},
				LinearAcceleration: &models.Vec3{X: 0, Y: 0, Z: 9.8},
			},
		},
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 2)
	assert.Equal(t, "robot0/imu/angular_velocity", sink.records[0].entity)
	assert.Equal(t, models.Scalars{Values: []float64{5}}, sink.records[0].rec)
	assert.Equal(t, "robot0/imu/linear_acceleration", sink.records[1].entity)
	assert.Equal(t, models.Scalars{Values: []float64{9.8}}, sink.records[1].rec)
}

func TestHandleIMUMissingVector(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{
			Topic:      "/robot0/imu",
			SchemaName: "umi.IMUMeasurement",
			Decoded:    &models.IMUMeasurement{AngularVelocity: &models.Vec3{X: 1}},
		},
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Failed)
	assert.Empty(t, sink.records)
}

func TestHandleCalibration(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{
			Topic:      "/cam/front/info",
			SchemaName: "foxglove.CameraCalibration",
			Decoded:    &models.CameraCalibration{Width: 1920, Height: 1080},
		},
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	assert.Equal(t, models.TextLog{Text: "Camera: 1920x1080"}, sink.records[0].rec)
}

func TestHandleEncoder(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{
			Topic:      "/robot0/gripper/encoder",
			SchemaName: "umi.MagneticEncoderMeasurement",
			Decoded:    &models.MagneticEncoderMeasurement{Value: 42.5},
		},
	}}
	sink := &memorySink{}

	_, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "robot0/gripper/encoder", sink.records[0].entity)
	assert.Equal(t, models.Scalars{Values: []float64{42.5}}, sink.records[0].rec)
}

func TestHandlerRejectsWrongPayloadShape(t *testing.T) {
	src := &sliceSource{msgs: []*models.Message{
		{Topic: "/cam/front", SchemaName: "foxglove.CompressedImage", Decoded: nil},
	}}
	sink := &memorySink{}

	stats, err := newTestConverter().Run(src, sink)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Failed)
	assert.Empty(t, sink.records)
}

// ---------------------------------------------------------------------------
// Path derivation
// ---------------------------------------------------------------------------

func TestEntityPath(t *testing.T) {
	assert.Equal(t, "robot0/vio/eef_pose", EntityPath("/robot0/vio/eef_pose"))
	assert.Equal(t, "cam/front", EntityPath("cam/front"), "no leading slash is fine")
}

func TestTrajectoryPath(t *testing.T) {
	assert.Equal(t, "robot0/z_trajectory", trajectoryPath("robot0/vio/eef_pose"))
	assert.Equal(t, "robot0/imu", trajectoryPath("robot0/imu"), "non-pose paths pass through")
}

func TestMatchSchema(t *testing.T) {
	assert.Equal(t, models.SchemaCompressedImage, matchSchema("foxglove.CompressedImage"))
	assert.Equal(t, models.SchemaPoseInFrame, matchSchema("umi.msgs.PoseInFrame"))
	assert.Equal(t, "", matchSchema("custom.BatteryState"))
	assert.Equal(t, "", matchSchema(""))
}

func TestToSeconds(t *testing.T) {
	assert.Equal(t, 0.0, toSeconds(0))
	assert.Equal(t, 1.5, toSeconds(1_500_000_000))
	assert.InDelta(t, 1.7e9, toSeconds(1_700_000_000_123_456_789), 1)
}
