package container

import (
	"encoding/binary"
	"io"

	"zpaqng/internal/bitio"
)

// Writer serializes Blocks to an underlying byte stream.
type Writer struct {
	bw *bitio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{bw: bitio.NewWriter(w)} }

// Tell returns the number of bytes written so far through this Writer.
func (w *Writer) Tell() int64 { return w.bw.Tell() }

// WriteBlock frames and writes one block: magic, length-prefixed hcomp
// bytecode, the pcomp presence marker (and length-prefixed pcomp bytecode
// if present), each segment, and the block terminator.
func (w *Writer) WriteBlock(b *Block) error {
	if err := w.bw.WriteAll(Magic[:]); err != nil {
		return err
	}

	hcompBytes := b.HComp.Marshal()
	if err := writeUvarint(w.bw, uint64(len(hcompBytes))); err != nil {
		return err
	}
	if err := w.bw.WriteAll(hcompBytes); err != nil {
		return err
	}

	if b.PComp == nil {
		if err := w.bw.WriteByte(pcompAbsentMarker); err != nil {
			return err
		}
	} else {
		if err := w.bw.WriteByte(pcompPresentMarker); err != nil {
			return err
		}
		pcompBytes := b.PComp.Marshal()
		if err := writeUvarint(w.bw, uint64(len(pcompBytes))); err != nil {
			return err
		}
		if err := w.bw.WriteAll(pcompBytes); err != nil {
			return err
		}
	}

	for i, seg := range b.Segments {
		last := i == len(b.Segments)-1
		if err := w.writeSegment(seg, last); err != nil {
			return err
		}
	}
	return w.bw.WriteByte(blockTerminator)
}

func (w *Writer) writeSegment(seg Segment, last bool) error {
	if err := writeCString(w.bw, seg.Filename); err != nil {
		return err
	}
	if err := writeCString(w.bw, seg.Comment); err != nil {
		return err
	}
	if err := w.bw.WriteByte(0); err != nil { // reserved
		return err
	}
	if err := writeUvarint(w.bw, uint64(seg.RawLen)); err != nil {
		return err
	}
	if err := writeUvarint(w.bw, uint64(len(seg.Payload))); err != nil {
		return err
	}
	if err := w.bw.WriteAll(seg.Payload); err != nil {
		return err
	}
	if err := w.bw.WriteByte(sentinelEndOfData); err != nil {
		return err
	}
	if seg.Checksum != nil {
		if err := w.bw.WriteByte(1); err != nil {
			return err
		}
		if err := w.bw.WriteAll(seg.Checksum); err != nil {
			return err
		}
	} else {
		if err := w.bw.WriteByte(0); err != nil {
			return err
		}
	}
	if last {
		return w.bw.WriteByte(sentinelBlockEnd)
	}
	return w.bw.WriteByte(sentinelNotLast)
}

func writeCString(bw *bitio.Writer, s string) error {
	if err := bw.WriteAll([]byte(s)); err != nil {
		return err
	}
	return bw.WriteByte(0)
}

func writeUvarint(bw *bitio.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return bw.WriteAll(buf[:n])
}
