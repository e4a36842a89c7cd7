package predictor

import (
	"github.com/cespare/xxhash/v2"

	"zpaqng/internal/zpaql"
)

// Component is one predictor in the chain. Predict returns this
// component's 12-bit prediction for the current bit; Update folds in the
// observed bit. chain gives access to the partial byte (C0) and the
// outputs already produced by earlier components this bit.
type Component interface {
	Predict(chain *Chain) uint16
	Update(chain *Chain, bit int)
}

// --- CONST ---------------------------------------------------------------

// ConstComponent always predicts a fixed value. No state, no update.
type ConstComponent struct {
	P uint16
}

func NewConst(p uint16) *ConstComponent { return &ConstComponent{P: clampPred(int32(p))} }

func (c *ConstComponent) Predict(*Chain) uint16 { return c.P }
func (c *ConstComponent) Update(*Chain, int)    {}

// --- CM (context map) ------------------------------------------------------

type cmCell struct {
	p uint16
	n uint16
}

// CMComponent is a direct context map: 2^s cells of (prediction, count),
// indexed by hash(context, partial byte). Initialized to the neutral
// prediction 2048 with count 0.
type CMComponent struct {
	table []cmCell
	limit uint16
	mask  uint32
	idx   uint32
}

func NewCM(s int, limit int) *CMComponent {
	n := 1 << s
	t := make([]cmCell, n)
	for i := range t {
		t[i] = cmCell{p: PredMid, n: 0}
	}
	return &CMComponent{table: t, limit: uint16(limit), mask: uint32(n - 1)}
}

func (c *CMComponent) Predict(chain *Chain) uint16 {
	c.idx = hashCtx(chain.Ctx, chain.C0) & c.mask
	return c.table[c.idx].p
}

func (c *CMComponent) Update(chain *Chain, bit int) {
	cell := &c.table[c.idx]
	target := int32(0)
	if bit == 1 {
		target = PredMax
	}
	// Move p toward bit with step 1/(count+1), cap count at limit.
	step := (target - int32(cell.p)) / int32(cell.n+1)
	cell.p = clampPred(int32(cell.p) + step)
	if cell.n < c.limit {
		cell.n++
	}
}

// --- ICM (indirect context map) --------------------------------------------

// stateTable implements the classic nonstationary bit-history counter: each
// of 256 states encodes an approximate (n0, n1) count pair and transitions
// on the next bit observed, without ever storing unbounded counts.
var stateTable [256][2]byte

func init() {
	// States are laid out as a bounded (n0, n1) lattice; observing a bit
	// increments the matching count (with decay once a coordinate grows
	// past a small cap) and decays the other coordinate once it is stale.
	type ns struct{ n0, n1 byte }
	var table []ns
	seen := map[[2]byte]int{}
	add := func(n0, n1 byte) int {
		key := [2]byte{n0, n1}
		if i, ok := seen[key]; ok {
			return i
		}
		i := len(table)
		seen[key] = i
		table = append(table, ns{n0, n1})
		return i
	}
	const cap8 = 20
	for n0 := 0; n0 <= cap8; n0++ {
		for n1 := 0; n1 <= cap8; n1++ {
			if n0+n1 > cap8 {
				continue
			}
			add(byte(n0), byte(n1))
		}
	}
	next := func(n0, n1 byte, bit int) (byte, byte) {
		if bit == 1 {
			n1++
			if n0 > 2 {
				n0 = n0/2 + 1
			}
		} else {
			n0++
			if n1 > 2 {
				n1 = n1/2 + 1
			}
		}
		if n0 > cap8 {
			n0 = cap8
		}
		if n1 > cap8 {
			n1 = cap8
		}
		return n0, n1
	}
	for i := 0; i < 256 && i < len(table); i++ {
		s := table[i]
		n0, n1 := next(s.n0, s.n1, 0)
		stateTable[i][0] = byte(add(n0, n1))
		n0, n1 = next(s.n0, s.n1, 1)
		stateTable[i][1] = byte(add(n0, n1))
	}
}

// ICMComponent hashes (context, partial byte) to a small state-machine
// cell; the state byte indexes a StateMap giving the adaptive probability
// for that bit-history class.
type ICMComponent struct {
	states  []byte // 2^s states, one per hashed context
	stateMap [256]cmCell
	mask    uint32
	idx     uint32
	state   byte
}

func NewICM(s int) *ICMComponent {
	n := 1 << s
	c := &ICMComponent{states: make([]byte, n), mask: uint32(n - 1)}
	for i := range c.stateMap {
		c.stateMap[i] = cmCell{p: PredMid, n: 0}
	}
	return c
}

func (c *ICMComponent) Predict(chain *Chain) uint16 {
	c.idx = hashCtx(chain.Ctx, chain.C0) & c.mask
	c.state = c.states[c.idx]
	return c.stateMap[c.state].p
}

func (c *ICMComponent) Update(chain *Chain, bit int) {
	cell := &c.stateMap[c.state]
	target := int32(0)
	if bit == 1 {
		target = PredMax
	}
	const smLimit = 1023
	step := (target - int32(cell.p)) / int32(cell.n+1)
	cell.p = clampPred(int32(cell.p) + step)
	if cell.n < smLimit {
		cell.n++
	}
	c.states[c.idx] = stateTable[c.state][bit]
}

// --- MATCH -----------------------------------------------------------------

// MatchComponent predicts the continuation of the longest previously seen
// match of the recent byte history, using a non-cryptographic hash table
// (xxhash, from the arloliu/mebo dependency survey) purely as an in-memory
// lookup structure — the hash table itself carries no on-wire meaning,
// only the matched bytes it finds do.
type MatchComponent struct {
	buf      []byte // ring buffer of decoded bytes
	bufMask  uint32
	hashTbl  []int32 // hash(last k bytes) -> last position+1 (0 = empty)
	hashMask uint32

	pos      uint32 // write position in buf
	matchPtr int32  // -1 if no active match
	matchLen int32
	predByte byte
	rolling  uint64
}

const matchMinContext = 6

func NewMatch(s int, bufbits int) *MatchComponent {
	return &MatchComponent{
		buf:      make([]byte, 1<<bufbits),
		bufMask:  uint32(1<<bufbits - 1),
		hashTbl:  make([]int32, 1<<s),
		hashMask: uint32(1<<s - 1),
		matchPtr: -1,
	}
}

func (c *MatchComponent) Predict(chain *Chain) uint16 {
	if c.matchPtr < 0 {
		return PredMid
	}
	bitPos := 7 - bitsConsumed(chain.C0)
	c.predByte = c.buf[uint32(c.matchPtr)&c.bufMask]
	predBit := (c.predByte >> uint(bitPos)) & 1

	// Confidence grows with match length: longer matches predict more
	// confidently.
	conf := c.matchLen
	if conf > 28 {
		conf = 28
	}
	strength := int32(conf * 64)
	if predBit == 0 {
		strength = -strength
	}
	return squash(strength)
}

func (c *MatchComponent) Update(chain *Chain, bit int) {
	// Only act at byte boundaries (after the 8th bit of the current byte
	// has been folded into C0 by the caller before calling AdvanceByte).
}

// AdvanceByte is called once per decoded/encoded byte (not per bit) to
// extend or reset the match and index the new byte into the hash table.
func (c *MatchComponent) AdvanceByte(b byte) {
	if c.matchPtr >= 0 && c.buf[uint32(c.matchPtr)&c.bufMask] == b {
		c.matchPtr++
		c.matchLen++
	} else {
		c.matchPtr = -1
		c.matchLen = 0
	}

	c.buf[c.pos&c.bufMask] = b
	c.pos++
	c.rolling = c.rolling<<8 | uint64(b)

	if c.pos >= matchMinContext {
		h := xxhash.Sum64(u64Bytes(c.rolling))
		key := uint32(h) & c.hashMask
		if c.matchPtr < 0 {
			if cand := c.hashTbl[key]; cand != 0 {
				c.matchPtr = cand
				c.matchLen = 1
			}
		}
		c.hashTbl[key] = int32(c.pos)
	}
}

func u64Bytes(v uint64) []byte {
	return []byte{byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// bitsConsumed returns how many bits of the current byte have already been
// coded, given the partial-byte accumulator c0 (which starts at 1 and
// gains one bit per step, per the standard "1-prefixed" convention).
func bitsConsumed(c0 uint32) int {
	n := 0
	for v := c0; v > 1; v >>= 1 {
		n++
	}
	return n
}

// --- AVG ---------------------------------------------------------------

// AvgComponent predicts the weighted mean of two earlier outputs; it has
// no state and performs no update.
type AvgComponent struct {
	I, J int
	W    int32 // weight on output I, out of 256; (256-W) applies to J
}

func (c *AvgComponent) Predict(chain *Chain) uint16 {
	pi := int32(chain.Outputs[c.I])
	pj := int32(chain.Outputs[c.J])
	return clampPred((pi*c.W + pj*(256-c.W)) / 256)
}
func (c *AvgComponent) Update(*Chain, int) {}

// --- MIX2 / MIX ----------------------------------------------------------

// MixComponent logistic-mixes N referenced inputs using a per-context
// weight vector, updated by signed error x input.
type MixComponent struct {
	Inputs []int
	rate   int32
	w      [][]int32 // per-context weight vector, one row per context slot
	mask   uint32
	row    []int32
	st     []int32 // stretched inputs cached from last Predict
	idx    uint32
}

func NewMix(s int, inputs []int, rate int32) *MixComponent {
	n := 1 << s
	w := make([][]int32, n)
	for i := range w {
		w[i] = make([]int32, len(inputs))
	}
	return &MixComponent{Inputs: inputs, rate: rate, w: w, mask: uint32(n - 1)}
}

func (c *MixComponent) Predict(chain *Chain) uint16 {
	c.idx = hashCtx(chain.Ctx, chain.C0) & c.mask
	c.row = c.w[c.idx]
	if c.st == nil || len(c.st) != len(c.Inputs) {
		c.st = make([]int32, len(c.Inputs))
	}
	var sum int64
	for i, inIdx := range c.Inputs {
		s := stretch(chain.Outputs[inIdx])
		c.st[i] = s
		sum += int64(s) * int64(c.row[i])
	}
	return squash(int32(sum >> 16))
}

func (c *MixComponent) Update(chain *Chain, bit int) {
	target := int32(0)
	if bit == 1 {
		target = PredMax
	}
	p := int32(chain.Outputs[chain.curIdx])
	err := (target - p) * c.rate
	for i := range c.row {
		c.row[i] += (c.st[i] * err) >> 16
	}
}

// --- ISSE ----------------------------------------------------------------

// ISSEComponent pairs an ICM with a 2-weight mixer: the ICM supplies a
// context-adapted prediction that the mixer blends with an earlier output.
type ISSEComponent struct {
	Input int
	icm   *ICMComponent
	w0    int32
	w1    int32
	lastICM int32
	lastIn  int32
	idxW    uint32
	weights [][2]int32
	mask    uint32
}

func NewISSE(s int, input int) *ISSEComponent {
	n := 1 << s
	w := make([][2]int32, n)
	for i := range w {
		w[i] = [2]int32{1 << 14, 1 << 14}
	}
	return &ISSEComponent{Input: input, icm: NewICM(s), weights: w, mask: uint32(n - 1)}
}

func (c *ISSEComponent) Predict(chain *Chain) uint16 {
	icmP := c.icm.Predict(chain)
	c.idxW = hashCtx(chain.Ctx, chain.C0) & c.mask
	wv := c.weights[c.idxW]
	c.lastICM = stretch(icmP)
	c.lastIn = stretch(chain.Outputs[c.Input])
	sum := (int64(c.lastICM)*int64(wv[0]) + int64(c.lastIn)*int64(wv[1])) >> 16
	return squash(int32(sum))
}

func (c *ISSEComponent) Update(chain *Chain, bit int) {
	c.icm.Update(chain, bit)
	target := int32(0)
	if bit == 1 {
		target = PredMax
	}
	p := int32(chain.Outputs[chain.curIdx])
	err := (target - p) * 6
	wv := &c.weights[c.idxW]
	wv[0] += (c.lastICM * err) >> 16
	wv[1] += (c.lastIn * err) >> 16
}

// --- SSE -------------------------------------------------------------------

// SSEComponent refines an earlier prediction through a 2D table indexed by
// (context, quantized input), interpolating between the two bracketing
// cells.
type SSEComponent struct {
	Input  int
	ctxN   int
	table  [][33]cmCell // 33 quantization buckets per context, matching zpaq's APM shape
	mask   uint32
	ctxIdx uint32
	lo, hi int
	frac   int32
}

func NewSSE(s int, input int) *SSEComponent {
	n := 1 << s
	t := make([][33]cmCell, n)
	for i := range t {
		for j := 0; j < 33; j++ {
			// Initialize along the identity curve: cell j predicts
			// roughly squash((j-16)*128), the neutral APM seed.
			t[i][j] = cmCell{p: squash(int32(j-16) * 128), n: 0}
		}
	}
	return &SSEComponent{Input: input, table: t, mask: uint32(n - 1)}
}

func (c *SSEComponent) Predict(chain *Chain) uint16 {
	c.ctxIdx = hashCtx(chain.Ctx, chain.C0) & c.mask
	s := stretch(chain.Outputs[c.Input]) + 2048 // [0,4095]
	bucket := s * 32 / 4096
	if bucket > 31 {
		bucket = 31
	}
	c.lo, c.hi = int(bucket), int(bucket)+1
	lowX := bucket * 4096 / 32
	c.frac = (s - lowX) * 4096 / (4096 / 32)

	row := &c.table[c.ctxIdx]
	pl := int32(row[c.lo].p)
	ph := int32(row[c.hi].p)
	return clampPred(pl + (ph-pl)*c.frac/4096)
}

func (c *SSEComponent) Update(chain *Chain, bit int) {
	target := int32(0)
	if bit == 1 {
		target = PredMax
	}
	row := &c.table[c.ctxIdx]
	for _, i := range [2]int{c.lo, c.hi} {
		cell := &row[i]
		step := (target - int32(cell.p)) / int32(cell.n+1)
		cell.p = clampPred(int32(cell.p) + step)
		if cell.n < 1023 {
			cell.n++
		}
	}
}

// hashCtx mixes a raw VM-derived context with the partial byte using two
// odd multipliers and an xor-shift, giving every component
// kind an inexpensive, well-distributed index without needing a second
// dependency.
func hashCtx(ctx, c0 uint32) uint32 {
	h := ctx*2654435761 + c0*2246822519 + 1
	h ^= h >> 15
	return h
}

// FromDesc builds a concrete Component from its wire descriptor.
// Earlier component outputs are resolved by index into the owning Chain
// at predict-time, not at construction time.
func FromDesc(d zpaql.ComponentDesc) Component {
	switch d.Kind {
	case zpaql.KindConst:
		return NewConst(uint16(arg(d, 0, PredMid)))
	case zpaql.KindCM:
		return NewCM(arg(d, 0, 16), arg(d, 1, 1023))
	case zpaql.KindICM:
		return NewICM(arg(d, 0, 16))
	case zpaql.KindMatch:
		return NewMatch(arg(d, 0, 20), arg(d, 1, 16))
	case zpaql.KindAvg:
		return &AvgComponent{I: arg(d, 0, 0), J: arg(d, 1, 0), W: int32(arg(d, 2, 128))}
	case zpaql.KindMix2:
		return NewMix(arg(d, 0, 0), []int{arg(d, 1, 0), arg(d, 2, 0)}, int32(arg(d, 3, 6)))
	case zpaql.KindMix:
		n := len(d.Args) - 2
		inputs := make([]int, n)
		for i := 0; i < n; i++ {
			inputs[i] = d.Args[2+i]
		}
		return NewMix(arg(d, 0, 0), inputs, int32(arg(d, 1, 6)))
	case zpaql.KindISSE:
		return NewISSE(arg(d, 0, 0), arg(d, 1, 0))
	case zpaql.KindSSE:
		return NewSSE(arg(d, 0, 0), arg(d, 1, 0))
	default:
		return NewConst(PredMid)
	}
}

func arg(d zpaql.ComponentDesc, i, def int) int {
	if i < len(d.Args) {
		return d.Args[i]
	}
	return def
}
