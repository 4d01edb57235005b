// Package h264 inspects Annex-B H.264 fragments at the NAL-unit level and
// assembles the minimal standalone decodable unit (SPS + PPS + IDR) from a
// live fragment stream. No bitstream decoding happens here; pixel decode is
// delegated to an external decoder.
package h264

import "bytes"

// H.264 NAL unit types
const (
	NALUnitTypeIDR = 5
	NALUnitTypeSPS = 7
	NALUnitTypePPS = 8
)

// StartCode4 is the 4-byte Annex-B start code every capture fragment begins with
var StartCode4 = []byte{0x00, 0x00, 0x00, 0x01}

// NALUnitType returns the type of the NAL unit at the head of the fragment:
// the low 5 bits of the byte following the 4-byte start code. The second
// return is false when the fragment is too short or carries no start code;
// such fragments are ignorable, not errors.
func NALUnitType(data []byte) (uint8, bool) {
	if len(data) < 5 || !bytes.HasPrefix(data, StartCode4) {
		return 0, false
	}
	return data[4] & 0x1F, true
}

// KeyframeAssembler accumulates H.264 fragments until it holds an SPS followed
// by an IDR (with any PPS in between), enough for a decoder to produce one
// standalone frame.
//
// The buffer is replaced, not appended to, whenever a new SPS arrives: any
// partial sequence collected under the previous parameter set is discarded.
// This reset-on-SPS behavior is the contract, mirroring the source pipeline.
type KeyframeAssembler struct {
	buf     []byte
	haveSPS bool
	ready   bool

	inspected int
	cap       int
}

// DefaultScanCap bounds how many candidate fragments are inspected before the
// search reports not-found.
const DefaultScanCap = 100

// NewKeyframeAssembler creates an assembler inspecting at most scanCap
// fragments; scanCap <= 0 selects DefaultScanCap.
func NewKeyframeAssembler(scanCap int) *KeyframeAssembler {
	if scanCap <= 0 {
		scanCap = DefaultScanCap
	}
	return &KeyframeAssembler{cap: scanCap}
}

// Feed offers one H264-classified fragment to the assembler and reports
// whether the scan should continue: false once the buffer is ready or the
// fragment cap is exhausted. A new SPS always restarts the sequence, even
// over a previously completed buffer.
func (a *KeyframeAssembler) Feed(data []byte) bool {
	if a.inspected >= a.cap {
		return false
	}
	a.inspected++

	nalType, ok := NALUnitType(data)
	if ok {
		switch {
		case nalType == NALUnitTypeSPS:
			// New parameter set: restart the sequence from here
			a.buf = append([]byte(nil), data...)
			a.haveSPS = true
			a.ready = false
		case a.haveSPS && !a.ready && nalType == NALUnitTypePPS:
			a.buf = append(a.buf, data...)
		case a.haveSPS && !a.ready && nalType == NALUnitTypeIDR:
			a.buf = append(a.buf, data...)
			a.ready = true
		}
		// Other NAL types (and anything before the first SPS) are ignored
	}

	return !a.ready && a.inspected < a.cap
}

// Ready reports whether the buffer holds a complete SPS..IDR sequence
func (a *KeyframeAssembler) Ready() bool {
	return a.ready
}

// Bytes returns the accumulated buffer. Only meaningful once Ready is true.
func (a *KeyframeAssembler) Bytes() []byte {
	return a.buf
}

// Inspected returns how many fragments have been offered so far
func (a *KeyframeAssembler) Inspected() int {
	return a.inspected
}
