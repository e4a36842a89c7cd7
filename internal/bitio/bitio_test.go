package bitio

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteByte('h'))
	require.NoError(t, w.WriteByte('i'))
	require.Equal(t, int64(2), w.Tell())

	r := NewReader(&buf)
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('h'), b)
}

func TestReadExactTruncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	_, err := r.ReadExact(5)
	require.Error(t, err)
}

func TestDigestMatchesKnownSHA1(t *testing.T) {
	d := NewDigest()
	d.Write([]byte("hello"))
	sum := d.Sum()
	require.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hex.EncodeToString(sum[:]))
}

func TestDigestReaderWriter(t *testing.T) {
	var buf bytes.Buffer
	dw := NewDigestWriter(&buf)
	_, err := dw.Write([]byte("hello"))
	require.NoError(t, err)

	dr := NewDigestReader(bytes.NewReader(buf.Bytes()))
	out := make([]byte, buf.Len())
	_, err = dr.Read(out)
	require.NoError(t, err)

	require.Equal(t, dw.Sum(), dr.Sum())
}
