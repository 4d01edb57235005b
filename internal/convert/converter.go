// Package convert turns an ordered capture message stream into visualization
// log records: it applies the topic skip list, normalizes timestamps, routes
// each message to a schema-specific handler and contains per-message failures
// so one malformed message never aborts a run.
package convert

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"umigallery/internal/classify"
	"umigallery/internal/metrics"
	"umigallery/internal/recording"
	"umigallery/pkg/models"
)

// MessageSource yields decoded capture messages in capture order. Next
// returns io.EOF after the final message.
type MessageSource interface {
	Next() (*models.Message, error)
}

// CaptureSource is a MessageSource tied to an open capture file
type CaptureSource interface {
	MessageSource
	Close() error
}

// Converter dispatches capture messages for one or more conversion runs.
// Per-run state (video stream tracker, stats) is created fresh in Run.
type Converter struct {
	skip    map[string]struct{}
	metrics *metrics.Metrics // optional

	// ProgressInterval controls how often a progress line is logged; <= 0
	// disables progress logging.
	ProgressInterval int
}

// New creates a converter with the given topic skip list. metrics may be nil.
func New(skipTopics []string, m *metrics.Metrics) *Converter {
	skip := make(map[string]struct{}, len(skipTopics))
	for _, t := range skipTopics {
		skip[t] = struct{}{}
	}
	return &Converter{skip: skip, metrics: m, ProgressInterval: 5000}
}

// Run consumes the source to completion, logging records to the sink. The
// returned stats are valid even when err is non-nil; err reports only
// container-level read failures, which are fatal for the file.
func (c *Converter) Run(src MessageSource, sink recording.Sink) (models.RunStats, error) {
	tracker := NewVideoStreamTracker()
	stats := models.RunStats{ByType: make(map[string]int)}

	for {
		msg, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return stats, fmt.Errorf("failed to read capture message: %w", err)
		}

		// Skip list applies before anything else
		if _, skipped := c.skip[msg.Topic]; skipped {
			stats.Skipped++
			if c.metrics != nil {
				c.metrics.RecordMessageSkipped()
			}
			continue
		}

		// One timeline for every record from this message
		sink.SetTime(toSeconds(msg.LogTime))

		marker := matchSchema(msg.SchemaName)
		if marker == "" {
			stats.Unrecognized++
			if c.metrics != nil {
				c.metrics.RecordMessageUnrecognized()
			}
			continue
		}

		if err := c.dispatch(marker, msg, tracker, sink); err != nil {
			stats.Failed++
			if c.metrics != nil {
				c.metrics.RecordMessageFailed()
			}
			log.Printf("Message on %s (%s) failed: %v", msg.Topic, msg.SchemaName, err)
			continue
		}

		stats.Processed++
		stats.ByType[marker]++
		if c.metrics != nil {
			c.metrics.RecordMessageProcessed(marker)
		}
		if c.ProgressInterval > 0 && stats.Processed%uint64(c.ProgressInterval) == 0 {
			log.Printf("  Processed %d messages...", stats.Processed)
		}
	}

	return stats, nil
}

// toSeconds converts an integer nanosecond log time to the float seconds
// timeline used for every emitted record
func toSeconds(ns uint64) float64 {
	return float64(ns) / 1e9
}

// matchSchema returns the first marker contained in the schema name, or ""
func matchSchema(schemaName string) string {
	if schemaName == "" {
		return ""
	}
	for _, marker := range models.SchemaMarkers {
		if strings.Contains(schemaName, marker) {
			return marker
		}
	}
	return ""
}

// EntityPath derives the output entity path from a topic: the slash-joined
// hierarchy with the leading slash trimmed
func EntityPath(topic string) string {
	return strings.TrimPrefix(topic, "/")
}

// trajectoryPath derives the separate trajectory entity from a pose entity.
// The z_ prefix sorts it last in the viewer's panel order.
func trajectoryPath(entityPath string) string {
	return strings.Replace(entityPath, "vio/eef_pose", "z_trajectory", 1)
}

func (c *Converter) dispatch(marker string, msg *models.Message, tracker *VideoStreamTracker, sink recording.Sink) error {
	path := EntityPath(msg.Topic)

	switch marker {
	case models.SchemaCompressedImage:
		return c.handleImage(path, msg, tracker, sink)
	case models.SchemaPoseInFrame:
		return c.handlePose(path, msg, sink)
	case models.SchemaIMUMeasurement:
		return c.handleIMU(path, msg, sink)
	case models.SchemaCameraCalibration:
		return c.handleCalibration(path, msg, sink)
	case models.SchemaMagneticEncoder:
		return c.handleEncoder(path, msg, sink)
	}
	return fmt.Errorf("no handler for marker %q", marker)
}

// handleImage classifies the payload and emits either a video stream record
// pair (init once per entity, then samples) or one encoded-image record
func (c *Converter) handleImage(path string, msg *models.Message, tracker *VideoStreamTracker, sink recording.Sink) error {
	img, ok := msg.Decoded.(*models.CompressedImage)
	if !ok {
		return fmt.Errorf("payload is not a compressed image")
	}

	format := classify.Detect(img.Data, img.Format)
	if format == classify.FormatH264 {
		if tracker.EnsureInitialized(path) {
			if err := c.emit(sink, path, models.VideoStreamInit{Codec: "h264"}); err != nil {
				return err
			}
		}
		return c.emit(sink, path, models.VideoStreamSample{Codec: "h264", Data: img.Data})
	}

	return c.emit(sink, path, models.EncodedImage{MediaType: format.MediaType(), Data: img.Data})
}

// handlePose emits a transform at the entity path plus a trajectory point at
// the derived path. Both records are built before either is logged, so a
// malformed pose emits nothing.
func (c *Converter) handlePose(path string, msg *models.Message, sink recording.Sink) error {
	pose, ok := msg.Decoded.(*models.PoseInFrame)
	if !ok {
		return fmt.Errorf("payload is not a pose")
	}
	if pose.Position == nil {
		return fmt.Errorf("pose has no position")
	}
	if pose.Orientation == nil {
		return fmt.Errorf("pose has no orientation")
	}

	position := [3]float64{pose.Position.X, pose.Position.Y, pose.Position.Z}
	transform := models.Transform3D{
		Translation: position,
		Rotation:    [4]float64{pose.Orientation.X, pose.Orientation.Y, pose.Orientation.Z, pose.Orientation.W},
	}
	point := models.Points3D{
		Positions: [][3]float64{position},
		Radii:     []float64{0.005},
		Colors:    [][3]uint8{{100, 200, 255}},
	}

	if err := c.emit(sink, path, transform); err != nil {
		return err
	}
	return c.emit(sink, trajectoryPath(path), point)
}

// handleIMU emits the Euclidean norm of each vector as a scalar at a sub-path
func (c *Converter) handleIMU(path string, msg *models.Message, sink recording.Sink) error {
	imu, ok := msg.Decoded.(*models.IMUMeasurement)
	if !ok {
		return fmt.Errorf("payload is not an IMU measurement")
	}
	if imu.AngularVelocity == nil {
		return fmt.Errorf("IMU measurement has no angular velocity")
	}
	if imu.LinearAcceleration == nil {
		return fmt.Errorf("IMU measurement has no linear acceleration")
	}

	if err := c.emit(sink, path+"/angular_velocity", models.Scalars{Values: []float64{norm(imu.AngularVelocity)}}); err != nil {
		return err
	}
	return c.emit(sink, path+"/linear_acceleration", models.Scalars{Values: []float64{norm(imu.LinearAcceleration)}})
}

// handleCalibration emits one text annotation summarizing the camera size
func (c *Converter) handleCalibration(path string, msg *models.Message, sink recording.Sink) error {
	cal, ok := msg.Decoded.(*models.CameraCalibration)
	if !ok {
		return fmt.Errorf("payload is not a camera calibration")
	}
	return c.emit(sink, path, models.TextLog{Text: fmt.Sprintf("Camera: %dx%d", cal.Width, cal.Height)})
}

// handleEncoder emits the encoder reading as a scalar
func (c *Converter) handleEncoder(path string, msg *models.Message, sink recording.Sink) error {
	enc, ok := msg.Decoded.(*models.MagneticEncoderMeasurement)
	if !ok {
		return fmt.Errorf("payload is not an encoder measurement")
	}
	return c.emit(sink, path, models.Scalars{Values: []float64{enc.Value}})
}

func (c *Converter) emit(sink recording.Sink, path string, rec models.Record) error {
	if err := sink.Log(path, rec); err != nil {
		return fmt.Errorf("failed to log %s record: %w", rec.Kind(), err)
	}
	if c.metrics != nil {
		c.metrics.RecordRecordLogged(rec.Kind())
	}
	return nil
}

func norm(v *models.Vec3) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}
