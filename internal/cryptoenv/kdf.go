// Package cryptoenv implements the archive-level cryptographic envelope:
// key strengthening, the AES-256-CTR stream cipher, and salt/offset framing.
// This is AUDIT-CRITICAL code - changes here directly affect whether an
// encrypted archive can be decrypted by any other conforming implementation.
package cryptoenv

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"zpaqng/internal/util"
)

// Scrypt parameters. CRITICAL: these MUST NOT change, or existing
// archives become undecryptable.
const (
	ScryptN = 16384
	ScryptR = 8
	ScryptP = 1

	// SaltSize is the first 32 bytes of the archive after the crypto
	// preamble magic, used both as the scrypt salt and as IV material.
	SaltSize = 32

	// DerivedSize is the total scrypt output: 32 bytes encryption key
	// followed by 32 bytes MAC-key/nonce material.
	DerivedSize = 64
	EncKeySize  = 32
	MacKeySize  = 32
)

// RandomBytes generates n cryptographically secure random bytes, used for
// the archive salt. Delegates to util.RandomBytes, the same
// crypto/rand primitive the CLI's password generator draws from.
func RandomBytes(n int) ([]byte, error) {
	return util.RandomBytes(n)
}

// DerivedKey holds the two subkeys produced by scrypt: the AES-256 key and
// the MAC-key/nonce-seed material.
type DerivedKey struct {
	EncKey []byte // 32 bytes, AES-256 key
	MacKey []byte // 32 bytes, keyed-MAC key
}

// DeriveKey runs the concatenation-salted memory-hard KDF (scrypt, matching
// the reference's N/r/p parameters) against password and salt, producing the
// 64-byte output split into an encryption key and a MAC-key/nonce seed.
//
// CRITICAL: parameters and output ordering MUST match the reference exactly.
func DeriveKey(password, salt []byte) (*DerivedKey, error) {
	if len(salt) != SaltSize {
		return nil, errors.New("cryptoenv: salt must be 32 bytes")
	}

	out, err := scrypt.Key(password, salt, ScryptN, ScryptR, ScryptP, DerivedSize)
	if err != nil {
		return nil, fmt.Errorf("cryptoenv: scrypt derivation failed: %w", err)
	}

	dk := &DerivedKey{
		EncKey: append([]byte(nil), out[:EncKeySize]...),
		MacKey: append([]byte(nil), out[EncKeySize:DerivedSize]...),
	}

	// Sanity check: derived material should never be all zeros.
	if allZero(dk.EncKey) || allZero(dk.MacKey) {
		return nil, errors.New("cryptoenv: scrypt produced degenerate key material")
	}

	SecureZero(out)
	return dk, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Close zeroes the subkeys. Callers MUST defer this immediately after
// deriving keys to minimize the window key material is resident in memory.
func (dk *DerivedKey) Close() {
	if dk == nil {
		return
	}
	SecureZero(dk.EncKey)
	SecureZero(dk.MacKey)
}
