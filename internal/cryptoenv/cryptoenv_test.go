package cryptoenv

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"zpaqng/internal/zpaqerr"
)

// memBackingFile is a minimal growable in-memory io.ReadWriteSeeker, standing
// in for the on-disk file EncryptedFile normally wraps.
type memBackingFile struct {
	buf []byte
	pos int64
}

func (m *memBackingFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memBackingFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBackingFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos += int64(n)
	return n, nil
}

func newSealedEnvelope(t *testing.T, password []byte) (*memBackingFile, []byte) {
	t.Helper()
	salt := bytes.Repeat([]byte{0x22}, SaltSize)
	back := &memBackingFile{}
	require.NoError(t, WritePreamble(back, &Preamble{Salt: salt}))
	return back, salt
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x11}, SaltSize)
	dk1, err := DeriveKey([]byte("hunter2"), salt)
	require.NoError(t, err)
	dk2, err := DeriveKey([]byte("hunter2"), salt)
	require.NoError(t, err)
	require.Equal(t, dk1.EncKey, dk2.EncKey)
	require.Equal(t, dk1.MacKey, dk2.MacKey)
	require.Len(t, dk1.EncKey, EncKeySize)
	require.Len(t, dk1.MacKey, MacKeySize)
}

func TestDeriveKeyDifferentSaltDiffers(t *testing.T) {
	salt1 := bytes.Repeat([]byte{0x01}, SaltSize)
	salt2 := bytes.Repeat([]byte{0x02}, SaltSize)
	dk1, err := DeriveKey([]byte("pw"), salt1)
	require.NoError(t, err)
	dk2, err := DeriveKey([]byte("pw"), salt2)
	require.NoError(t, err)
	require.NotEqual(t, dk1.EncKey, dk2.EncKey)
}

func TestDeriveKeyRejectsShortSalt(t *testing.T) {
	_, err := DeriveKey([]byte("pw"), []byte{1, 2, 3})
	require.Error(t, err)
}

func TestStreamCipherRandomAccessRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x33}, SaltSize)
	dk, err := DeriveKey([]byte("pw"), salt)
	require.NoError(t, err)

	sc, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)

	plain := bytes.Repeat([]byte("the quick brown fox "), 100)
	cipherText := make([]byte, len(plain))
	sc.XORAt(cipherText, plain, 0)

	sc2, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)

	// Decrypt a slice starting mid-stream at a non-aligned offset and
	// confirm it matches the corresponding plaintext slice.
	off := int64(37)
	n := 50
	got := make([]byte, n)
	sc2.XORAt(got, cipherText[off:int(off)+n], off)
	require.Equal(t, plain[off:int(off)+n], got)
}

func TestPreambleRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x09}, SaltSize)
	var buf bytes.Buffer
	require.NoError(t, WritePreamble(&buf, &Preamble{Salt: salt}))

	p, err := ReadPreamble(&buf)
	require.NoError(t, err)
	require.Equal(t, salt, p.Salt)
}

func TestReadPreambleBadMagic(t *testing.T) {
	_, err := ReadPreamble(bytes.NewReader(bytes.Repeat([]byte{0xFF}, PreambleSize)))
	require.Error(t, err)
}

func TestReadPreambleTruncated(t *testing.T) {
	_, err := ReadPreamble(bytes.NewReader(PreambleMagic[:4]))
	require.Error(t, err)
}

func TestMACDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{0x44}, MacKeySize)
	m1, err := NewMAC(key)
	require.NoError(t, err)
	m2, err := NewMAC(key)
	require.NoError(t, err)
	m1.Write([]byte("payload"))
	m2.Write([]byte("payload"))
	require.Equal(t, m1.Sum(nil), m2.Sum(nil))
	require.Len(t, m1.Sum(nil), MACSize)
}

func TestEncryptedFileResealThenReopenVerifies(t *testing.T) {
	back, salt := newSealedEnvelope(t, []byte("pw"))
	dk, err := DeriveKey([]byte("pw"), salt)
	require.NoError(t, err)
	sc, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)

	ef, err := NewEncryptedFile(back, sc, dk.MacKey)
	require.NoError(t, err)
	_, err = ef.Write([]byte("hello, archive"))
	require.NoError(t, err)
	require.NoError(t, ef.Reseal())

	sc2, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)
	reopened, err := NewEncryptedFile(back, sc2, dk.MacKey)
	require.NoError(t, err)
	_, err = reopened.Seek(0, io.SeekStart)
	require.NoError(t, err)
	got := make([]byte, len("hello, archive"))
	_, err = io.ReadFull(reopened, got)
	require.NoError(t, err)
	require.Equal(t, "hello, archive", string(got))
}

func TestEncryptedFileDetectsTamperedCiphertext(t *testing.T) {
	back, salt := newSealedEnvelope(t, []byte("pw"))
	dk, err := DeriveKey([]byte("pw"), salt)
	require.NoError(t, err)
	sc, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)

	ef, err := NewEncryptedFile(back, sc, dk.MacKey)
	require.NoError(t, err)
	_, err = ef.Write([]byte("untouched payload bytes"))
	require.NoError(t, err)
	require.NoError(t, ef.Reseal())

	back.buf[PreambleSize] ^= 0xFF

	sc2, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)
	_, err = NewEncryptedFile(back, sc2, dk.MacKey)
	require.ErrorIs(t, err, zpaqerr.MacMismatch)
}

func TestEncryptedFileSequentialTransactionsReseal(t *testing.T) {
	back, salt := newSealedEnvelope(t, []byte("pw"))
	dk, err := DeriveKey([]byte("pw"), salt)
	require.NoError(t, err)
	sc, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)

	ef, err := NewEncryptedFile(back, sc, dk.MacKey)
	require.NoError(t, err)

	_, err = ef.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	_, err = ef.Write([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, ef.Reseal())

	_, err = ef.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	_, err = ef.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, ef.Reseal())

	sc2, err := NewStreamCipher(dk.EncKey, salt)
	require.NoError(t, err)
	reopened, err := NewEncryptedFile(back, sc2, dk.MacKey)
	require.NoError(t, err)
	all := make([]byte, len("firstsecond"))
	_, err = io.ReadFull(reopened, all)
	require.NoError(t, err)
	require.Equal(t, "firstsecond", string(all))
}
