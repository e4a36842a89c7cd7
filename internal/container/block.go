// Package container implements the block/segment framing layer: the
// on-wire structure every compressed stream is wrapped in, independent
// of what method produced the payload bits.
package container

import (
	"zpaqng/internal/zpaql"
)

// Magic is the fixed 13-byte block magic a reader resynchronizes on after
// corruption. Segment payloads and the other framed fields are written
// unescaped, so a payload that itself contains this byte sequence is not
// prevented and can be taken for a block start during resync.
var Magic = [13]byte{0x37, 0x6B, 0x53, 0x74, 0xA0, 0x31, 0x83, 0xD3, 0x8C, 0xB2, 0x28, 0xB0, 0xD3}

const (
	sentinelEndOfData  = 0xFC
	sentinelBlockEnd   = 0xFD
	sentinelNotLast    = 0x00
	blockTerminator    = 0xFF
	pcompAbsentMarker  = 0x00
	pcompPresentMarker = 0x01
)

// Block is one independently decodable framed unit: a self-describing
// hcomp program, an optional pcomp post-processing program, and one or
// more segments. None of this
// implementation's own presets emit a pcomp (methods.go's level 0-5 all
// leave it nil), but ReadBlock parses one when a foreign archive carries
// one, and WriteBlock will frame one if a caller sets it.
type Block struct {
	HComp    *zpaql.Program
	PComp    *zpaql.Program // nil if absent
	Segments []Segment
}

// Segment is a named byte stream within a block. Filename
// empty means "continuation of the previous named stream".
// Checksum is the optional SHA-1 over the pre-compression bytes the
// segment's Payload decodes to; nil means no checksum was recorded.
type Segment struct {
	Filename string
	Comment  string
	Payload  []byte // arithmetic-coded bytes, as produced by the stream codec
	RawLen   int    // length of the decoded bytes Payload expands to
	Checksum []byte // 20 bytes, or nil
	Last     bool   // true on the final segment of a block
}
