package cryptoenv

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// BlockAlign is the granularity at which the keystream can be recomputed
// for random-access decrypt.
const BlockAlign = 16

// ivHigh derives the salt-dependent high 8 bytes of the counter-mode nonce.
// Using a digest of the salt (rather than the raw salt bytes) keeps the
// nonce independent of the scrypt salt's own byte layout while remaining
// fully deterministic from it.
func ivHigh(salt []byte) [8]byte {
	sum := sha3.Sum256(salt)
	var h [8]byte
	copy(h[:], sum[:8])
	return h
}

// nonceForOffset builds the 16-byte AES-CTR IV for the keystream starting at
// archive byte offset off: high 8 bytes are the salt-derived IV, low 8 bytes
// are offset/16 as a big-endian block counter.
func nonceForOffset(salt []byte, off int64) [aes.BlockSize]byte {
	var iv [aes.BlockSize]byte
	hi := ivHigh(salt)
	copy(iv[:8], hi[:])
	binary.BigEndian.PutUint64(iv[8:], uint64(off/BlockAlign))
	return iv
}

// StreamCipher wraps an AES-256-CTR keystream that can be (re)seeded at an
// arbitrary archive offset, giving random-access decrypt of any block.
type StreamCipher struct {
	block cipher.Block
	salt  []byte
}

// NewStreamCipher builds the AES-256-CTR keystream generator for key/salt.
// Use a vetted AES implementation - stdlib crypto/aes.
func NewStreamCipher(key, salt []byte) (*StreamCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoenv: aes key setup: %w", err)
	}
	return &StreamCipher{block: block, salt: append([]byte(nil), salt...)}, nil
}

// StreamAt returns a keystream positioned at archive byte offset off,
// rounded down to the nearest BlockAlign boundary. Callers that need a
// sub-block offset must discard (off % BlockAlign) bytes of keystream
// themselves before XORing payload bytes.
func (sc *StreamCipher) StreamAt(off int64) cipher.Stream {
	iv := nonceForOffset(sc.salt, off)
	return cipher.NewCTR(sc.block, iv[:])
}

// XORAt XORs src into dst using the keystream starting at archive offset off.
func (sc *StreamCipher) XORAt(dst, src []byte, off int64) {
	aligned := off - off%BlockAlign
	skip := int(off - aligned)
	s := sc.StreamAt(aligned)
	if skip > 0 {
		discard := make([]byte, skip)
		s.XORKeyStream(discard, discard)
	}
	s.XORKeyStream(dst, src)
}

// NewMAC creates the keyed payload MAC: BLAKE2b-512 keyed with the MAC
// subkey.
func NewMAC(macKey []byte) (hash.Hash, error) {
	return blake2b.New512(macKey)
}

// MACSize is the output size of the payload MAC.
const MACSize = 64
