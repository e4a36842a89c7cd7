// Package bitio provides the framed byte-stream primitives the container
// and codec layers build on: single-byte read/write, exact-length reads,
// and an incremental SHA-1 accumulator. No buffering policy is mandated
// here; callers wrap os.File or bytes.Buffer as they see fit.
package bitio

import (
	"crypto/sha1"
	"hash"
	"io"

	"zpaqng/internal/zpaqerr"
)

// Reader is the minimal synchronous, blocking read surface the codec and
// container layers depend on.
type Reader struct {
	r io.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadByte reads a single byte, mapping a short read to Truncated.
func (br *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, mapReadErr(err)
	}
	return b[0], nil
}

// ReadExact reads exactly n bytes, mapping a short read to Truncated.
func (br *Reader) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return nil, mapReadErr(err)
	}
	return buf, nil
}

func mapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return zpaqerr.Truncated
	}
	return zpaqerr.Wrap(err, "bitio read")
}

// Writer is the minimal synchronous, blocking write surface.
type Writer struct {
	w io.Writer
	n int64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteByte writes a single byte.
func (bw *Writer) WriteByte(b byte) error {
	_, err := bw.w.Write([]byte{b})
	if err != nil {
		return zpaqerr.Wrap(err, "bitio write")
	}
	bw.n++
	return nil
}

// WriteAll writes buf in full.
func (bw *Writer) WriteAll(buf []byte) error {
	n, err := bw.w.Write(buf)
	bw.n += int64(n)
	if err != nil {
		return zpaqerr.Wrap(err, "bitio write")
	}
	return nil
}

// Tell returns the number of bytes written so far through this Writer.
func (bw *Writer) Tell() int64 { return bw.n }

// Digest is an incremental SHA-1 accumulator used for segment trailer
// checksums (C7). Fragment identity (C8) is hashed separately by the
// journal package.
type Digest struct {
	h hash.Hash
}

// NewDigest starts a fresh SHA-1 accumulator.
func NewDigest() *Digest { return &Digest{h: sha1.New()} }

// Write feeds bytes into the running digest. Never returns an error
// (sha1.Hash.Write never fails), matching hash.Hash's contract.
func (d *Digest) Write(p []byte) (int, error) { return d.h.Write(p) }

// Sum returns the 20-byte SHA-1 digest of everything written so far.
func (d *Digest) Sum() [20]byte {
	var out [20]byte
	copy(out[:], d.h.Sum(nil))
	return out
}

// DigestReader tees reads through a running SHA-1 digest.
type DigestReader struct {
	r io.Reader
	d *Digest
}

// NewDigestReader wraps r, accumulating a SHA-1 of every byte read through it.
func NewDigestReader(r io.Reader) *DigestReader {
	return &DigestReader{r: r, d: NewDigest()}
}

func (dr *DigestReader) Read(p []byte) (int, error) {
	n, err := dr.r.Read(p)
	if n > 0 {
		dr.d.Write(p[:n])
	}
	return n, err
}

// Sum returns the running SHA-1 digest.
func (dr *DigestReader) Sum() [20]byte { return dr.d.Sum() }

// DigestWriter tees writes through a running SHA-1 digest.
type DigestWriter struct {
	w io.Writer
	d *Digest
}

// NewDigestWriter wraps w, accumulating a SHA-1 of every byte written through it.
func NewDigestWriter(w io.Writer) *DigestWriter {
	return &DigestWriter{w: w, d: NewDigest()}
}

func (dw *DigestWriter) Write(p []byte) (int, error) {
	n, err := dw.w.Write(p)
	if n > 0 {
		dw.d.Write(p[:n])
	}
	return n, err
}

// Sum returns the running SHA-1 digest.
func (dw *DigestWriter) Sum() [20]byte { return dw.d.Sum() }
