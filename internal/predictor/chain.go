package predictor

import "zpaqng/internal/zpaql"

// Chain is the component arena for one hcomp program: an ordered list of
// Components, each referencing only earlier entries by index.
// It holds the per-bit working state shared across components: the raw
// VM-derived context for the current byte, the partial-byte accumulator,
// and the slice of this-bit outputs so AVG/MIX/ISSE/SSE can read earlier
// components' predictions.
type Chain struct {
	components []Component
	Outputs    []uint16
	Ctx        uint32
	C0         uint32 // partial byte accumulator, starts at 1 each byte
	curIdx     int
}

// NewChain builds a Chain from a program's component table.
func NewChain(descs []zpaql.ComponentDesc) *Chain {
	c := &Chain{
		components: make([]Component, len(descs)),
		Outputs:    make([]uint16, len(descs)),
	}
	for i, d := range descs {
		c.components[i] = FromDesc(d)
	}
	return c
}

// BeginByte resets the partial-byte accumulator and sets the shared raw
// context for this byte: the hcomp program's A register after its last run.
func (c *Chain) BeginByte(ctx uint32) {
	c.Ctx = ctx
	c.C0 = 1
}

// Predict runs every component in order and returns the final component's
// prediction, the chain's output for this bit.
func (c *Chain) Predict() uint16 {
	for i, comp := range c.components {
		c.curIdx = i
		c.Outputs[i] = comp.Predict(c)
	}
	if len(c.Outputs) == 0 {
		return PredMid
	}
	return c.Outputs[len(c.Outputs)-1]
}

// Update folds the observed bit into every component's state, then rolls
// the partial byte forward.
func (c *Chain) Update(bit int) {
	for i, comp := range c.components {
		c.curIdx = i
		comp.Update(c, bit)
	}
	c.C0 = c.C0<<1 | uint32(bit&1)
}

// AdvanceByte notifies any MATCH components that a full byte has been
// decoded/encoded, letting them extend or reset their active match and
// index the byte into their hash table.
func (c *Chain) AdvanceByte(b byte) {
	for _, comp := range c.components {
		if m, ok := comp.(*MatchComponent); ok {
			m.AdvanceByte(b)
		}
	}
}

// Len reports the number of components in the chain.
func (c *Chain) Len() int { return len(c.components) }
