// Package mcapreader reads MCAP capture files and yields decoded messages in
// capture order. It is the reader collaborator of the converter: the core
// never touches the container format, and payloads come out as the fixed
// per-schema shapes in pkg/models.
package mcapreader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/foxglove/mcap/go/mcap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"umigallery/pkg/models"
)

// Reader iterates one capture file. It is not safe for concurrent use; one
// conversion run owns it.
type Reader struct {
	f        *os.File
	it       mcap.MessageIterator
	decoders map[uint16]*schemaDecoder // schema ID -> decoder, nil when unusable
}

// Open opens a capture file for sequential reading. Errors here are fatal for
// the file (corrupt container), never recovered from.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	reader, err := mcap.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture container: %w", err)
	}

	it, err := reader.Messages(mcap.UsingIndex(false))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to iterate capture messages: %w", err)
	}

	return &Reader{
		f:        f,
		it:       it,
		decoders: make(map[uint16]*schemaDecoder),
	}, nil
}

// Next returns the next message in capture order, io.EOF after the last one.
// A payload the reader cannot decode yields a message with Decoded nil; the
// dispatcher turns that into a per-message failure, not a read error.
func (r *Reader) Next() (*models.Message, error) {
	schema, channel, message, err := r.it.Next(nil)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("capture read failed: %w", err)
	}

	msg := &models.Message{
		Topic:   channel.Topic,
		LogTime: message.LogTime,
	}
	if schema == nil {
		return msg, nil
	}
	msg.SchemaName = schema.Name

	if dec := r.decoderFor(schema); dec != nil {
		msg.Decoded = dec.decode(message.Data)
	}
	return msg, nil
}

// Close closes the underlying capture file
func (r *Reader) Close() error {
	return r.f.Close()
}

// decoderFor returns the cached decoder for a schema, building it on first
// sight. Schemas we cannot model decode to nil payloads.
func (r *Reader) decoderFor(schema *mcap.Schema) *schemaDecoder {
	if dec, seen := r.decoders[schema.ID]; seen {
		return dec
	}

	dec, err := newSchemaDecoder(schema)
	if err != nil {
		log.Printf("Schema %s not decodable: %v", schema.Name, err)
		dec = nil
	}
	r.decoders[schema.ID] = dec
	return dec
}

// schemaDecoder decodes protobuf-encoded payloads of one schema into the
// matching tagged payload shape
type schemaDecoder struct {
	descriptor protoreflect.MessageDescriptor
	marker     string
}

func newSchemaDecoder(schema *mcap.Schema) (*schemaDecoder, error) {
	if schema.Encoding != "protobuf" {
		return nil, fmt.Errorf("unsupported schema encoding %q", schema.Encoding)
	}

	marker := ""
	for _, m := range models.SchemaMarkers {
		if strings.Contains(schema.Name, m) {
			marker = m
			break
		}
	}
	if marker == "" {
		// Unrecognized schemas stay opaque; the dispatcher counts them
		return nil, fmt.Errorf("schema matches no handler")
	}

	// MCAP protobuf schemas carry a serialized FileDescriptorSet
	fdSet := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(schema.Data, fdSet); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(fdSet)
	if err != nil {
		return nil, fmt.Errorf("failed to build descriptor files: %w", err)
	}
	desc, err := files.FindDescriptorByName(protoreflect.FullName(schema.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to find descriptor %s: %w", schema.Name, err)
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("descriptor %s is not a message", schema.Name)
	}

	return &schemaDecoder{descriptor: md, marker: marker}, nil
}

// decode unmarshals one payload; nil on failure (recoverable downstream)
func (d *schemaDecoder) decode(data []byte) any {
	msg := dynamicpb.NewMessage(d.descriptor)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil
	}
	m := msg.ProtoReflect()

	switch d.marker {
	case models.SchemaCompressedImage:
		return &models.CompressedImage{
			Format: stringField(m, "format"),
			Data:   bytesField(m, "data"),
		}
	case models.SchemaPoseInFrame:
		payload := &models.PoseInFrame{FrameID: stringField(m, "frame_id")}
		if pose, ok := subMessage(m, "pose"); ok {
			payload.Position = vec3Field(pose, "position")
			payload.Orientation = quatField(pose, "orientation")
		}
		return payload
	case models.SchemaIMUMeasurement:
		return &models.IMUMeasurement{
			AngularVelocity:    vec3Field(m, "angular_velocity"),
			LinearAcceleration: vec3Field(m, "linear_acceleration"),
		}
	case models.SchemaCameraCalibration:
		width, _ := numericField(m, "width")
		height, _ := numericField(m, "height")
		return &models.CameraCalibration{Width: uint32(width), Height: uint32(height)}
	case models.SchemaMagneticEncoder:
		value, _ := numericField(m, "value")
		return &models.MagneticEncoderMeasurement{Value: value}
	}
	return nil
}

// Field extraction helpers. All are absence-tolerant: a missing field yields
// the zero value (or nil for sub-messages) and the handler decides whether
// that is an error.

func fieldByName(m protoreflect.Message, name string) (protoreflect.FieldDescriptor, bool) {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	return fd, fd != nil
}

func stringField(m protoreflect.Message, name string) string {
	if fd, ok := fieldByName(m, name); ok && fd.Kind() == protoreflect.StringKind {
		return m.Get(fd).String()
	}
	return ""
}

func bytesField(m protoreflect.Message, name string) []byte {
	if fd, ok := fieldByName(m, name); ok && fd.Kind() == protoreflect.BytesKind {
		return m.Get(fd).Bytes()
	}
	return nil
}

func subMessage(m protoreflect.Message, name string) (protoreflect.Message, bool) {
	fd, ok := fieldByName(m, name)
	if !ok || fd.Kind() != protoreflect.MessageKind || fd.IsList() || !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message(), true
}

func numericField(m protoreflect.Message, name string) (float64, bool) {
	fd, ok := fieldByName(m, name)
	if !ok {
		return 0, false
	}
	v := m.Get(fd)
	switch fd.Kind() {
	case protoreflect.DoubleKind, protoreflect.FloatKind:
		return v.Float(), true
	case protoreflect.Int32Kind, protoreflect.Int64Kind,
		protoreflect.Sint32Kind, protoreflect.Sint64Kind,
		protoreflect.Sfixed32Kind, protoreflect.Sfixed64Kind:
		return float64(v.Int()), true
	case protoreflect.Uint32Kind, protoreflect.Uint64Kind,
		protoreflect.Fixed32Kind, protoreflect.Fixed64Kind:
		return float64(v.Uint()), true
	}
	return 0, false
}

func vec3Field(m protoreflect.Message, name string) *models.Vec3 {
	sub, ok := subMessage(m, name)
	if !ok {
		return nil
	}
	x, _ := numericField(sub, "x")
	y, _ := numericField(sub, "y")
	z, _ := numericField(sub, "z")
	return &models.Vec3{X: x, Y: y, Z: z}
}

func quatField(m protoreflect.Message, name string) *models.Quat {
	sub, ok := subMessage(m, name)
	if !ok {
		return nil
	}
	x, _ := numericField(sub, "x")
	y, _ := numericField(sub, "y")
	z, _ := numericField(sub, "z")
	w, _ := numericField(sub, "w")
	return &models.Quat{X: x, Y: y, Z: z, W: w}
}
