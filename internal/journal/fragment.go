package journal

import "crypto/sha1"

// FragmentID is the content hash identifying a fragment.
type FragmentID [20]byte

// HashFragment computes the identity of a fragment's raw bytes. Always
// over the uncompressed user bytes, never the compressed form.
func HashFragment(data []byte) FragmentID {
	return FragmentID(sha1.Sum(data))
}

// FragmentRef locates a fragment's bytes within the archive: which block
// (by its start offset in the underlying file) holds the data segment,
// and the byte range inside that segment's decoded payload.
type FragmentRef struct {
	BlockOffset int64
	Start       int
	Length      int
}
