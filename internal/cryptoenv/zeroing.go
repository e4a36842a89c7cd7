package cryptoenv

import (
	"crypto/subtle"
	"hash"
)

// SecureZero overwrites a byte slice with zeros to reduce the window during
// which key material is recoverable from a memory dump. Go's garbage
// collector and compiler optimizations mean this cannot guarantee erasure,
// but subtle.ConstantTimeCopy prevents the call from being optimized away.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// SecureZeroHash resets a hash.Hash to clear any buffered state.
func SecureZeroHash(h hash.Hash) {
	if h != nil {
		h.Reset()
	}
}
