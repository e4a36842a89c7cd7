// Package arith implements the binary arithmetic (range) coder that turns
// the predictor's bitwise probabilities into a compressed byte stream and
// back. The coder carries 32 bits of range state; the
// midpoint split is computed through a 64-bit intermediate so the
// multiply-then-shift never overflows a machine word, and renormalization
// emits/consumes one byte at a time, MSB first.
package arith

import (
	"io"

	"zpaqng/internal/zpaqerr"
)

const probBits = 12 // predictor probabilities are 12-bit, in [0, 4095]

// Encoder compresses a sequence of (probability, bit) pairs into bytes
// written to w.
type Encoder struct {
	w      io.Writer
	low    uint32
	high   uint32
	pend   []byte
	cached bool
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, low: 0, high: 0xFFFFFFFF}
}

// EncodeBit codes bit (0 or 1) given p, the predictor's probability that
// the bit is 1, scaled to [0, 4095].
func (e *Encoder) EncodeBit(p uint16, bit int) error {
	if p > (1<<probBits)-1 {
		p = (1 << probBits) - 1
	}
	// mid = low + range*p/4096, via a 64-bit intermediate so the multiply
	// never overflows uint32. The split divides by 2^12 because p itself
	// is 12-bit; a 2^16 split would need p rescaled to 16 bits first, and
	// either way the decoder below mirrors this formula exactly.
	rangeSpan := uint64(e.high-e.low) + 1
	mid := e.low + uint32((rangeSpan*uint64(p))>>probBits)
	if mid >= e.high {
		mid = e.high - 1
	}
	if mid < e.low {
		mid = e.low
	}

	if bit == 1 {
		e.high = mid
	} else {
		e.low = mid + 1
	}

	for e.high>>24 == e.low>>24 {
		if err := e.emit(byte(e.high >> 24)); err != nil {
			return err
		}
		e.low <<= 8
		e.high = e.high<<8 | 0xFF
	}
	return nil
}

func (e *Encoder) emit(b byte) error {
	_, err := e.w.Write([]byte{b})
	if err != nil {
		return zpaqerr.Wrap(err, "arith.encode")
	}
	return nil
}

// Flush emits enough bytes to disambiguate the final range, leaving the
// decoder able to reconstruct every coded bit.
func (e *Encoder) Flush() error {
	for i := 0; i < 4; i++ {
		if err := e.emit(byte(e.low >> 24)); err != nil {
			return err
		}
		e.low <<= 8
	}
	return nil
}

// Decoder reverses Encoder, reading bytes from r and reproducing the
// original bit sequence given the same sequence of probabilities.
type Decoder struct {
	r    io.Reader
	low  uint32
	high uint32
	code uint32
}

// NewDecoder returns a Decoder reading from r, priming its 32-bit code
// register from the first four bytes of the stream.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{low: 0, high: 0xFFFFFFFF}
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, zpaqerr.Wrap(err, "arith.decode")
	}
	for i := 0; i < n; i++ {
		d.code = d.code<<8 | uint32(buf[i])
	}
	for i := n; i < 4; i++ {
		d.code <<= 8
	}
	d.r = r
	return d, nil
}

// DecodeBit reverses EncodeBit given the identical probability the
// encoder used at this position in the bitstream.
func (d *Decoder) DecodeBit(p uint16) (int, error) {
	if p > (1<<probBits)-1 {
		p = (1 << probBits) - 1
	}
	rangeSpan := uint64(d.high-d.low) + 1
	mid := d.low + uint32((rangeSpan*uint64(p))>>probBits)
	if mid >= d.high {
		mid = d.high - 1
	}
	if mid < d.low {
		mid = d.low
	}

	var bit int
	if d.code <= mid {
		bit = 1
		d.high = mid
	} else {
		bit = 0
		d.low = mid + 1
	}

	for d.high>>24 == d.low>>24 {
		nb, err := d.nextByte()
		if err != nil {
			return 0, err
		}
		d.low <<= 8
		d.high = d.high<<8 | 0xFF
		d.code = d.code<<8 | uint32(nb)
	}
	return bit, nil
}

func (d *Decoder) nextByte() (byte, error) {
	var buf [1]byte
	n, err := d.r.Read(buf[:])
	if n == 1 {
		return buf[0], nil
	}
	if err == io.EOF || err == nil {
		// Past end of stream: feed zero bytes, matching the encoder's
		// trailing flush padding so the final bits still decode correctly.
		return 0, nil
	}
	return 0, zpaqerr.Wrap(err, "arith.decode")
}
