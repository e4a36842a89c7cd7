package container

import (
	"bufio"
	"bytes"
	"io"

	"zpaqng/internal/zpaqerr"
	"zpaqng/internal/zpaql"
)

// Reader parses Blocks from an underlying byte stream, advancing past
// resync gaps on corruption.
type Reader struct {
	br     *bufio.Reader
	offset int64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

func (r *Reader) readByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, zpaqerr.Truncated
		}
		return 0, zpaqerr.Wrap(err, "container read")
	}
	r.offset++
	return b, nil
}

// readExact reads exactly n bytes. It grows the result chunk by chunk
// rather than allocating all n bytes up front, so a corrupt length field
// pointing far past the end of the stream fails with Truncated instead
// of a giant doomed allocation.
func (r *Reader) readExact(n int) ([]byte, error) {
	const chunk = 1 << 20
	first := n
	if first > chunk {
		first = chunk
	}
	buf := make([]byte, 0, first)
	for len(buf) < n {
		want := n - len(buf)
		if want > chunk {
			want = chunk
		}
		tmp := make([]byte, want)
		read, err := io.ReadFull(r.br, tmp)
		r.offset += int64(read)
		buf = append(buf, tmp[:read]...)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, zpaqerr.Truncated
			}
			return nil, zpaqerr.Wrap(err, "container read")
		}
	}
	return buf, nil
}

func (r *Reader) readCString() (string, error) {
	var buf []byte
	for {
		b, err := r.readByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func (r *Reader) readUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < 10; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, zpaqerr.NewContainerError("read-header", r.offset, zpaqerr.BadHeader)
}

// ReadBlock reads the next block, starting at the current offset. The
// magic check is non-consuming: on a mismatch the reader stays put, so
// Resync can scan forward from the exact byte the mismatch occurred at.
func (r *Reader) ReadBlock() (*Block, error) {
	head, err := r.br.Peek(len(Magic))
	if err != nil {
		if err == io.EOF {
			return nil, zpaqerr.Truncated
		}
		return nil, zpaqerr.Wrap(err, "container read")
	}
	if !bytes.Equal(head, Magic[:]) {
		return nil, zpaqerr.NewContainerError("read-magic", r.offset, zpaqerr.BadMagic)
	}
	if _, err := r.br.Discard(len(Magic)); err != nil {
		return nil, zpaqerr.Wrap(err, "container read")
	}
	r.offset += int64(len(Magic))

	n, err := r.readUvarint()
	if err != nil {
		return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
	}
	hcompBytes, err := r.readExact(int(n))
	if err != nil {
		return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
	}
	hcomp, err := zpaql.Unmarshal(hcompBytes)
	if err != nil {
		return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
	}

	pcompMarker, err := r.readByte()
	if err != nil {
		return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
	}
	var pcomp *zpaql.Program
	switch pcompMarker {
	case pcompAbsentMarker:
		// no pcomp program follows
	case pcompPresentMarker:
		pn, err := r.readUvarint()
		if err != nil {
			return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
		}
		pcompBytes, err := r.readExact(int(pn))
		if err != nil {
			return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
		}
		pcomp, err = zpaql.Unmarshal(pcompBytes)
		if err != nil {
			return nil, zpaqerr.NewContainerError("read-header", r.offset, err)
		}
	default:
		return nil, zpaqerr.NewContainerError("read-header", r.offset-1, zpaqerr.BadHeader)
	}

	var segs []Segment
	for {
		seg, last, err := r.readSegment()
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		if last {
			break
		}
	}

	term, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if term != blockTerminator {
		return nil, zpaqerr.NewContainerError("read-header", r.offset-1, zpaqerr.BadHeader)
	}

	return &Block{HComp: hcomp, PComp: pcomp, Segments: segs}, nil
}

func (r *Reader) readSegment() (Segment, bool, error) {
	filename, err := r.readCString()
	if err != nil {
		return Segment{}, false, err
	}
	comment, err := r.readCString()
	if err != nil {
		return Segment{}, false, err
	}
	if _, err := r.readByte(); err != nil { // reserved
		return Segment{}, false, err
	}
	rawLen, err := r.readUvarint()
	if err != nil {
		return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset, err)
	}
	plen, err := r.readUvarint()
	if err != nil {
		return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset, err)
	}
	payload, err := r.readExact(int(plen))
	if err != nil {
		return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset, err)
	}
	eod, err := r.readByte()
	if err != nil {
		return Segment{}, false, err
	}
	if eod != sentinelEndOfData {
		return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset-1, zpaqerr.BadHeader)
	}
	hasSum, err := r.readByte()
	if err != nil {
		return Segment{}, false, err
	}
	var sum []byte
	if hasSum == 1 {
		sum, err = r.readExact(20)
		if err != nil {
			return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset, err)
		}
	}
	endMark, err := r.readByte()
	if err != nil {
		return Segment{}, false, err
	}
	last := endMark == sentinelBlockEnd
	if endMark != sentinelBlockEnd && endMark != sentinelNotLast {
		return Segment{}, false, zpaqerr.NewContainerError("read-segment", r.offset-1, zpaqerr.BadHeader)
	}
	return Segment{Filename: filename, Comment: comment, Payload: payload, RawLen: int(rawLen), Checksum: sum, Last: last}, last, nil
}

