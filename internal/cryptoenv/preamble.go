package cryptoenv

import (
	"bytes"
	"io"

	"zpaqng/internal/zpaqerr"
)

// PreambleMagic differentiates an encrypted on-wire stream from a plain
// archive. It never collides with the container block magic,
// so a reader can distinguish "encrypted archive" from "plain archive
// that happens to start with this byte pattern" by length and position:
// the preamble only ever appears as the first bytes of the file.
var PreambleMagic = [8]byte{0x7A, 0x50, 0x51, 0x45, 0x4E, 0x43, 0x31, 0x00} // "zPQENC1\0"

// PreambleSize is the magic plus the 32-byte scrypt/IV salt.
const PreambleSize = len(PreambleMagic) + SaltSize

// Preamble is the plaintext header of an encrypted archive.
type Preamble struct {
	Salt []byte // 32 bytes
}

// WritePreamble writes the plaintext magic and salt to w.
func WritePreamble(w io.Writer, p *Preamble) error {
	if len(p.Salt) != SaltSize {
		return zpaqerr.NewCodecError("preamble", zpaqerr.BadHeader)
	}
	if _, err := w.Write(PreambleMagic[:]); err != nil {
		return zpaqerr.Wrap(err, "write preamble magic")
	}
	if _, err := w.Write(p.Salt); err != nil {
		return zpaqerr.Wrap(err, "write preamble salt")
	}
	return nil
}

// ReadPreamble reads and validates the plaintext magic and salt from r.
// A short read is Truncated; a magic mismatch means the stream is not
// (or no longer recognizable as) an encrypted archive.
func ReadPreamble(r io.Reader) (*Preamble, error) {
	buf := make([]byte, PreambleSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, zpaqerr.Truncated
		}
		return nil, zpaqerr.Wrap(err, "read preamble")
	}
	if !bytes.Equal(buf[:len(PreambleMagic)], PreambleMagic[:]) {
		return nil, zpaqerr.BadMagic
	}
	return &Preamble{Salt: append([]byte(nil), buf[len(PreambleMagic):]...)}, nil
}

// VerifyFirstBlockMagic checks that decrypting with the derived key
// reproduces the container's block magic at the start of the payload.
// A mismatch is reported as BadKey.
func VerifyFirstBlockMagic(decryptedHead, containerMagic []byte) error {
	if len(decryptedHead) < len(containerMagic) {
		return zpaqerr.Truncated
	}
	if !bytes.Equal(decryptedHead[:len(containerMagic)], containerMagic) {
		return zpaqerr.BadKey
	}
	return nil
}
