package zpaql

import (
	"zpaqng/internal/zpaqerr"
)

// ComponentKind mirrors the nine predictor variants the header declares.
// zpaql only needs to carry the tag and its construction
// arguments through the wire format; the predictor package gives them
// meaning.
type ComponentKind byte

const (
	KindConst ComponentKind = iota
	KindCM
	KindICM
	KindMatch
	KindAvg
	KindMix2
	KindMix
	KindISSE
	KindSSE
)

// ComponentDesc is one entry in the header's component table. Args holds
// the kind-specific construction parameters (e.g. CM's {s, limit}); later
// components may reference earlier ones only by index, never by pointer,
// so an "input" argument is always a small int index into the
// component arena built so far.
type ComponentDesc struct {
	Kind ComponentKind
	Args []int
}

// Header declares the memory shapes of a program: H and M are sized
// 2^HH and 2^HM bytes respectively for hcomp, 2^PH/2^PM for pcomp.
// All four bit-widths must be <= 32 and N <= 255.
type Header struct {
	HH, HM, PH, PM byte
	N              int // component count
}

// Validate enforces the header's size invariants.
func (h Header) Validate() error {
	if h.HH > 32 || h.HM > 32 || h.PH > 32 || h.PM > 32 {
		return zpaqerr.NewCodecError("header", zpaqerr.BadHeader)
	}
	if h.N < 0 || h.N > 255 {
		return zpaqerr.NewCodecError("header", zpaqerr.BadHeader)
	}
	return nil
}

// Program is one embedded sub-program: its header, component table, and
// opcode stream. A block always carries an hcomp Program; pcomp is
// optional.
type Program struct {
	Header     Header
	Components []ComponentDesc
	Code       []byte // terminated logically by OpEnd; Code does not include it
}

// Marshal serializes a Program to its on-wire bytecode: header vector,
// then N component descriptors, then the opcode stream, then OpEnd.
func (p *Program) Marshal() []byte {
	buf := make([]byte, 0, 16+len(p.Components)*6+len(p.Code)+1)
	buf = append(buf, p.Header.HH, p.Header.HM, p.Header.PH, p.Header.PM, byte(p.Header.N))
	for _, c := range p.Components {
		buf = append(buf, byte(c.Kind), byte(len(c.Args)))
		for _, a := range c.Args {
			buf = append(buf, byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
		}
	}
	buf = append(buf, p.Code...)
	buf = append(buf, byte(OpEnd))
	return buf
}

// Unmarshal parses a Program from its on-wire bytecode, stopping at the
// first OpEnd found in the trailing opcode stream.
func Unmarshal(buf []byte) (*Program, error) {
	if len(buf) < 5 {
		return nil, zpaqerr.NewCodecError("program", zpaqerr.Truncated)
	}
	h := Header{HH: buf[0], HM: buf[1], PH: buf[2], PM: buf[3], N: int(buf[4])}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	off := 5
	comps := make([]ComponentDesc, 0, h.N)
	for i := 0; i < h.N; i++ {
		if off+2 > len(buf) {
			return nil, zpaqerr.NewCodecError("program", zpaqerr.Truncated)
		}
		kind := ComponentKind(buf[off])
		nargs := int(buf[off+1])
		off += 2
		args := make([]int, nargs)
		for j := 0; j < nargs; j++ {
			if off+4 > len(buf) {
				return nil, zpaqerr.NewCodecError("program", zpaqerr.Truncated)
			}
			args[j] = int(buf[off])<<24 | int(buf[off+1])<<16 | int(buf[off+2])<<8 | int(buf[off+3])
			off += 4
		}
		comps = append(comps, ComponentDesc{Kind: kind, Args: args})
	}

	// Opcode stream runs until OpEnd.
	codeStart := off
	for off < len(buf) && Op(buf[off]) != OpEnd {
		op := Op(buf[off])
		off += 1 + operandBytes(op)
	}
	if off >= len(buf) {
		return nil, zpaqerr.NewCodecError("program", zpaqerr.BadHeader)
	}
	code := append([]byte(nil), buf[codeStart:off]...)

	return &Program{Header: h, Components: comps, Code: code}, nil
}
