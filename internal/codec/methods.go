// Package codec synthesizes the self-describing bytecode for each
// preset compression method and binds the VM,
// predictor chain, and arithmetic coder into one byte-oriented stream
// codec.
package codec

import (
	"zpaqng/internal/zpaql"
)

// Method bundles the hcomp program (context derivation), the component
// table it drives, and an optional pcomp post-processing program. PComp is
// left nil for every preset BuildMethod returns: none of the levels needs
// a post-processing filter, matching the "store" family of reference
// configurations rather than the transform-heavy ones. A Method rebuilt
// from a foreign archive's wire bytes via MethodFromProgram may still
// carry a non-nil PComp, which DecodeBlock will run.
type Method struct {
	Level      int
	HComp      *zpaql.Program
	PComp      *zpaql.Program
	Components []zpaql.ComponentDesc
}

// asm is a tiny readability helper: its arguments are already raw opcode
// bytes, it exists only so method tables below read as one call per
// instruction group.
func asm(b ...byte) []byte { return b }

func op(o zpaql.Op) byte { return byte(o) }

// order1Code computes a running order-1 context: each call hashes the
// input byte against the previous call's result, which is kept in R0
// across calls (Run does not clear registers between invocations, only
// Reset does).
func order1Code() []byte {
	return asm(
		op(zpaql.OpIn),
		op(zpaql.OpSetB), 0,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 0,
		op(zpaql.OpEnd),
	)
}

// order2Code folds the input byte into two running hashes (R0, R1) and
// combines them into A. R0 and R1 start at zero and follow the same
// recurrence, so they always hold equal values.
func order2Code() []byte {
	return asm(
		op(zpaql.OpIn),
		op(zpaql.OpSetB), 0,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 0, // R0 = order-1 hash

		op(zpaql.OpIn),
		op(zpaql.OpSetB), 1,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 1, // R1 = order-2 running hash (folds R1 again below)

		op(zpaql.OpLoadReg), 0,
		op(zpaql.OpSetB), 1,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 2, // R2 = combined context
		op(zpaql.OpLoadReg), 2,
		op(zpaql.OpEnd),
	)
}

// order3Code extends order2Code with a third fold so MATCH and SSE
// components at higher levels get a longer effective history.
func order3Code() []byte {
	return asm(
		op(zpaql.OpIn),
		op(zpaql.OpSetB), 0,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 0,

		op(zpaql.OpLoadReg), 0,
		op(zpaql.OpSetB), 1,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 1,

		op(zpaql.OpLoadReg), 1,
		op(zpaql.OpSetB), 2,
		op(zpaql.OpHash),
		op(zpaql.OpStoreReg), 2,
		op(zpaql.OpLoadReg), 2,
		op(zpaql.OpEnd),
	)
}

// BuildMethod returns the preset Method for the given level (0-5),
// mirroring the reference implementation's progression from "store" at
// level 0 to a multi-component mix-and-refine chain at level 5. Levels
// outside [0,5] clamp to the nearest endpoint.
func BuildMethod(level int) *Method {
	if level < 0 {
		level = 0
	}
	if level > 5 {
		level = 5
	}

	var m *Method
	switch level {
	case 0:
		// Store: literal identity, no arithmetic coding and no predictor
		// components at all. hcomp still carries a minimal self-describing
		// header with N=0; EncodeBlock/DecodeBlock detect the empty
		// component table and bypass the coder entirely.
		m = &Method{
			Level: 0,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 0, HM: 0, N: 0},
				Code:   asm(op(zpaql.OpEnd)),
			},
			Components: nil,
		}

	case 1:
		m = &Method{
			Level: 1,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 8, HM: 8, N: 1},
				Code:   order1Code(),
			},
			Components: []zpaql.ComponentDesc{
				{Kind: zpaql.KindCM, Args: []int{16, 1023}},
			},
		}

	case 2:
		m = &Method{
			Level: 2,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 10, HM: 10, N: 3},
				Code:   order2Code(),
			},
			Components: []zpaql.ComponentDesc{
				{Kind: zpaql.KindCM, Args: []int{18, 1023}},     // 0: order-1-ish CM
				{Kind: zpaql.KindICM, Args: []int{18}},          // 1: ICM
				{Kind: zpaql.KindMix2, Args: []int{8, 0, 1, 6}}, // 2: mix of 0,1
			},
		}

	case 3:
		m = &Method{
			Level: 3,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 12, HM: 16, N: 4},
				Code:   order2Code(),
			},
			Components: []zpaql.ComponentDesc{
				{Kind: zpaql.KindICM, Args: []int{20}},        // 0
				{Kind: zpaql.KindMatch, Args: []int{18, 20}},  // 1
				{Kind: zpaql.KindAvg, Args: []int{0, 1, 192}}, // 2
				{Kind: zpaql.KindSSE, Args: []int{8, 2}},      // 3: refine
			},
		}

	case 4:
		m = &Method{
			Level: 4,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 14, HM: 18, N: 5},
				Code:   order3Code(),
			},
			Components: []zpaql.ComponentDesc{
				{Kind: zpaql.KindICM, Args: []int{20}},             // 0
				{Kind: zpaql.KindICM, Args: []int{22}},             // 1
				{Kind: zpaql.KindMatch, Args: []int{20, 22}},       // 2
				{Kind: zpaql.KindMix, Args: []int{10, 6, 0, 1, 2}}, // 3: mixes 0,1,2
				{Kind: zpaql.KindSSE, Args: []int{9, 3}},           // 4
			},
		}

	default: // 5: maximum compression preset
		m = &Method{
			Level: 5,
			HComp: &zpaql.Program{
				Header: zpaql.Header{HH: 16, HM: 20, N: 7},
				Code:   order3Code(),
			},
			Components: []zpaql.ComponentDesc{
				{Kind: zpaql.KindICM, Args: []int{20}},             // 0
				{Kind: zpaql.KindICM, Args: []int{22}},             // 1
				{Kind: zpaql.KindISSE, Args: []int{22, 0}},         // 2: ICM+mixer on 0
				{Kind: zpaql.KindMatch, Args: []int{22, 24}},       // 3
				{Kind: zpaql.KindMix, Args: []int{12, 6, 1, 2, 3}}, // 4
				{Kind: zpaql.KindSSE, Args: []int{10, 4}},          // 5
				{Kind: zpaql.KindAvg, Args: []int{4, 5, 96}},       // 6: final blend
			},
		}
	}

	// The component table travels embedded inside the hcomp program's
	// wire bytes, so the marshaled header always carries the
	// same descriptors the predictor chain was built from.
	m.HComp.Components = m.Components
	m.HComp.Header.N = len(m.Components)
	return m
}

// MethodFromProgram rebuilds a decodable Method from a block's hcomp and
// (possibly nil) pcomp programs parsed off the wire.
func MethodFromProgram(hcomp, pcomp *zpaql.Program) *Method {
	return &Method{HComp: hcomp, PComp: pcomp, Components: hcomp.Components}
}
