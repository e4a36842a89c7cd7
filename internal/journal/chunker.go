package journal

import "math"

// Chunker performs content-defined chunking identical in shape to the
// ZPAQ-style splitter: a rolling hash driven by an order-1 byte predictor,
// so a cut point depends only on a short, content-derived window rather
// than a fixed offset. Grounded directly on the dedup package's zpaqWriter split
// logic: same order-1 table, same two hash multipliers (one odd for a
// correct prediction, one even-but-not-a-multiple-of-4 for a miss), same
// derivation of maxHash from the configured maximum fragment size.
type Chunker struct {
	h           uint32
	c1          byte
	maxFragment int
	minFragment int
	maxHash     uint32
	o1          [256]byte

	cur []byte
}

// NewChunker builds a Chunker whose average fragment size is maxSize/4 and
// minimum is maxSize/64, matching the reference's sizing relationship.
func NewChunker(maxSize int) *Chunker {
	fragment := math.Log2(float64(maxSize) / (64 * 64))
	mh := math.Exp2(22 - fragment)
	return &Chunker{
		maxFragment: maxSize,
		minFragment: maxSize / 64,
		maxHash:     uint32(mh),
	}
}

// Split scans data for cut points, invoking emit(chunk) for each complete
// fragment it finds (including a final partial fragment once Flush is
// called). It does not retain data across calls except the current
// partially filled fragment buffer.
func (c *Chunker) Split(data []byte, emit func([]byte)) {
	c1 := c.c1
	h := c.h
	for _, b := range data {
		if b == c.o1[c1] {
			h = (h + uint32(b) + 1) * 314159265
		} else {
			h = (h + uint32(b) + 1) * 271828182
		}
		c.o1[c1] = b
		c1 = b
		c.cur = append(c.cur, b)

		if (len(c.cur) >= c.minFragment && h < c.maxHash) || len(c.cur) >= c.maxFragment {
			emit(c.cur)
			c.cur = nil
			h = 0
			c1 = 0
		}
	}
	c.c1 = c1
	c.h = h
}

// Flush emits any partially accumulated fragment as a final chunk.
func (c *Chunker) Flush(emit func([]byte)) {
	if len(c.cur) == 0 {
		return
	}
	emit(c.cur)
	c.cur = nil
	c.h = 0
	c.c1 = 0
}
