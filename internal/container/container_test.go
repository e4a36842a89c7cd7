package container

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"zpaqng/internal/codec"
	"zpaqng/internal/zpaql"
)

func sampleBlock() *Block {
	m := codec.BuildMethod(1)
	return &Block{
		HComp: m.HComp,
		Segments: []Segment{
			{Filename: "hello.txt", Payload: []byte{1, 2, 3}, Checksum: []byte(bytes.Repeat([]byte{0xAB}, 20)), Last: true},
		},
	}
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBlock(sampleBlock()))

	r := NewReader(&buf)
	got, err := r.ReadBlock()
	require.NoError(t, err)
	require.Len(t, got.Segments, 1)
	require.Equal(t, "hello.txt", got.Segments[0].Filename)
	require.Equal(t, []byte{1, 2, 3}, got.Segments[0].Payload)
	require.True(t, got.Segments[0].Last)
}

func TestWriteReadMultiSegmentBlock(t *testing.T) {
	m := codec.BuildMethod(0)
	b := &Block{
		HComp: m.HComp,
		Segments: []Segment{
			{Filename: "d", Payload: []byte("fragbytes")},
			{Filename: "", Payload: []byte("more"), Last: true},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBlock(b))

	got, err := NewReader(&buf).ReadBlock()
	require.NoError(t, err)
	require.Len(t, got.Segments, 2)
	require.Equal(t, "d", got.Segments[0].Filename)
	require.False(t, got.Segments[0].Last)
	require.Equal(t, "", got.Segments[1].Filename)
	require.True(t, got.Segments[1].Last)
}

func TestResyncSkipsCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBlock(sampleBlock()))
	good := buf.Bytes()

	var corrupted bytes.Buffer
	corrupted.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00})
	corrupted.Write(good)

	r := NewReader(&corrupted)
	got, err := r.ReadBlockResync()
	require.NoError(t, err)
	require.Len(t, got.Segments, 1)
}

func TestReadBlockTruncatedMagic(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x37, 0x6B}))
	_, err := r.ReadBlock()
	require.Error(t, err)
}

func TestWriteReadBlockWithPComp(t *testing.T) {
	m := codec.BuildMethod(1)
	pcomp := &zpaql.Program{
		Header: zpaql.Header{PH: 2, PM: 2, N: 0},
		Code:   []byte{byte(zpaql.OpIn), byte(zpaql.OpOut)},
	}
	b := &Block{
		HComp: m.HComp,
		PComp: pcomp,
		Segments: []Segment{
			{Filename: "d", Payload: []byte("data"), Last: true},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBlock(b))

	got, err := NewReader(&buf).ReadBlock()
	require.NoError(t, err)
	require.NotNil(t, got.PComp)
	require.Equal(t, pcomp.Header, got.PComp.Header)
	require.Equal(t, pcomp.Code, got.PComp.Code)
}

func TestWriteReadBlockWithoutPCompLeavesItNil(t *testing.T) {
	got, err := NewReader(bytesBuf(sampleBlock())).ReadBlock()
	require.NoError(t, err)
	require.Nil(t, got.PComp)
}

func bytesBuf(b *Block) *bytes.Reader {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteBlock(b); err != nil {
		panic(err)
	}
	return bytes.NewReader(buf.Bytes())
}

// TestGoldenStoreBlockBytes pins the exact on-wire bytes of a
// store-preset block carrying "hello": any change here is a wire-format
// break, not a refactor.
func TestGoldenStoreBlockBytes(t *testing.T) {
	m := codec.BuildMethod(0)
	sum := sha1.Sum([]byte("hello"))
	b := &Block{
		HComp: m.HComp,
		Segments: []Segment{
			{Payload: []byte("hello"), RawLen: 5, Checksum: sum[:], Last: true},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteBlock(b))

	want := "376b5374a03183d38cb228b0d3" + // block magic
		"07" + // hcomp bytecode length
		"00000000000101" + // hcomp: zeroed header vector, N=0, code END, stream END
		"00" + // no pcomp
		"00" + "00" + "00" + // empty filename, empty comment, reserved byte
		"05" + "05" + // decoded length, payload length
		"68656c6c6f" + // "hello"
		"fc" + // end-of-data sentinel
		"01" + "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" + // checksum flag + SHA-1
		"fd" + // block-end sentinel
		"ff" // block terminator
	require.Equal(t, want, hex.EncodeToString(buf.Bytes()))
}

func TestMultipleBlocksSequential(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBlock(sampleBlock()))
	require.NoError(t, w.WriteBlock(sampleBlock()))

	r := NewReader(&buf)
	b1, err := r.ReadBlock()
	require.NoError(t, err)
	b2, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, b1.Segments[0].Filename, b2.Segments[0].Filename)
}
