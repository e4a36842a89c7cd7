package zpaql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func asm(ops ...byte) []byte { return ops }

func TestVMArithmetic(t *testing.T) {
	v := NewVM(4, 4)
	code := asm(
		byte(OpLoadImm8), 10,
		byte(OpStoreReg), 0,
		byte(OpLoadImm8), 3,
		byte(OpStoreReg), 1,
		byte(OpLoadReg), 0,
		byte(OpSetB), 1,
		byte(OpAdd),
		byte(OpEnd),
	)
	require.NoError(t, v.Run(code, 0))
	require.Equal(t, uint32(13), v.A)
}

func TestVMDivideByZeroYieldsZero(t *testing.T) {
	v := NewVM(4, 4)
	code := asm(
		byte(OpLoadImm8), 5,
		byte(OpStoreReg), 0,
		byte(OpLoadImm8), 0,
		byte(OpStoreReg), 1,
		byte(OpLoadReg), 0,
		byte(OpSetB), 1,
		byte(OpDiv),
		byte(OpEnd),
	)
	require.NoError(t, v.Run(code, 0))
	require.Equal(t, uint32(0), v.A)
}

func TestVMBranch(t *testing.T) {
	v := NewVM(4, 4)
	// A = 1; if A != 0 skip the "set A=99" instruction.
	code := []byte{
		byte(OpLoadImm8), 1,
		byte(OpJt), 3, // skip the next 3 bytes (LoadImm8 99 and End)
		byte(OpLoadImm8), 99,
		byte(OpEnd),
	}
	require.NoError(t, v.Run(code, 0))
	require.Equal(t, uint32(1), v.A)
}

func TestVMMemoryRoundTrip(t *testing.T) {
	v := NewVM(4, 4) // H and M are 16 bytes each
	code := asm(
		byte(OpLoadImm8), 7,
		byte(OpStoreReg), 0,
		byte(OpSetB), 0, // B = 7
		byte(OpLoadImm8), 42,
		byte(OpStoreH), // H[7] = 42
		byte(OpLoadImm8), 0,
		byte(OpLoadH), // A = H[7]
		byte(OpEnd),
	)
	require.NoError(t, v.Run(code, 0))
	require.Equal(t, uint32(42), v.A)
	require.Equal(t, byte(42), v.H[7])
}

func TestVMInstructionCeiling(t *testing.T) {
	v := NewVM(4, 4)
	v.MaxInstructions = 3
	// An infinite loop: offset -2 from the end of the 2-byte jmp lands
	// back on the jmp itself.
	jmpOffset := int8(-2)
	code := []byte{byte(OpJmp), byte(jmpOffset)}
	err := v.Run(code, 0)
	require.Error(t, err)
}

func TestProgramMarshalUnmarshalRoundTrip(t *testing.T) {
	p := &Program{
		Header: Header{HH: 4, HM: 4, PH: 0, PM: 0, N: 1},
		Components: []ComponentDesc{
			{Kind: KindCM, Args: []int{12, 255}},
		},
		Code: asm(byte(OpIn), byte(OpStoreReg), 0),
	}
	buf := p.Marshal()
	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, p.Header, got.Header)
	require.Equal(t, p.Components, got.Components)
	require.Equal(t, p.Code, got.Code)
}

func TestUnmarshalTruncated(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2})
	require.Error(t, err)
}
