package journal

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"zpaqng/internal/zpaqerr"
)

// PathRecord is one path's metadata as of the version that last touched
// it: size, modification time, attributes,
// and the ordered list of fragment ids making up its bytes. A tombstone
// records a deletion with no fragments.
type PathRecord struct {
	Path      string
	Size      int64
	ModTime   int64 // unix seconds
	Attrs     uint32
	Fragments []FragmentID
	Tombstone bool
}

// VersionRecord is one committed transaction batch.
type VersionRecord struct {
	ID        int
	Timestamp int64
	Comment   string
	Paths     []PathRecord
}

// fileIndexDigestSize is the SHA3-256 trailer appended after the path
// records. A decoder that stops after the count-prefixed records still
// decodes the index correctly; the trailer only adds a corruption check
// for readers that know to look for it.
const fileIndexDigestSize = 32

// encodeFileIndex serializes the "i" segment payload: a count-prefixed
// list of path records, each holding the path, size, mtime, attrs, a
// tombstone flag, and a fragment id list, in the order the version
// touched them, followed by a SHA3-256
// digest over the records.
func encodeFileIndex(paths []PathRecord) []byte {
	var buf []byte
	buf = appendUvarint(buf, uint64(len(paths)))
	for _, p := range paths {
		buf = appendString(buf, p.Path)
		buf = appendUvarint(buf, uint64(p.Size))
		buf = appendUvarint(buf, uint64(p.ModTime))
		buf = appendUvarint(buf, uint64(p.Attrs))
		if p.Tombstone {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendUvarint(buf, uint64(len(p.Fragments)))
		for _, f := range p.Fragments {
			buf = append(buf, f[:]...)
		}
	}
	sum := sha3.Sum256(buf)
	return append(buf, sum[:]...)
}

func decodeFileIndex(buf []byte) ([]PathRecord, error) {
	r := &byteCursor{buf: buf}
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	paths := make([]PathRecord, 0, n)
	for i := uint64(0); i < n; i++ {
		path, err := r.str()
		if err != nil {
			return nil, err
		}
		size, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		mtime, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		attrs, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		tomb, err := r.byteVal()
		if err != nil {
			return nil, err
		}
		nfrag, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		frags := make([]FragmentID, nfrag)
		for j := range frags {
			b, err := r.bytes(20)
			if err != nil {
				return nil, err
			}
			copy(frags[j][:], b)
		}
		paths = append(paths, PathRecord{
			Path: path, Size: int64(size), ModTime: int64(mtime),
			Attrs: uint32(attrs), Tombstone: tomb == 1, Fragments: frags,
		})
	}
	if rest := buf[r.pos:]; len(rest) >= fileIndexDigestSize {
		sum := sha3.Sum256(buf[:r.pos])
		if !bytes.Equal(sum[:], rest[:fileIndexDigestSize]) {
			return nil, zpaqerr.NewJournalError("decode", "", zpaqerr.ChecksumMismatch)
		}
	}
	return paths, nil
}

// encodeFragmentIndex serializes the "h" segment payload: a list of
// (sha1, length) pairs describing the fragments in the preceding "d"
// segment.
func encodeFragmentIndex(ids []FragmentID, lengths []int) []byte {
	var buf []byte
	buf = appendUvarint(buf, uint64(len(ids)))
	for i, id := range ids {
		buf = append(buf, id[:]...)
		buf = appendUvarint(buf, uint64(lengths[i]))
	}
	return buf
}

func decodeFragmentIndex(buf []byte) ([]FragmentID, []int, error) {
	r := &byteCursor{buf: buf}
	n, err := r.uvarint()
	if err != nil {
		return nil, nil, err
	}
	ids := make([]FragmentID, n)
	lens := make([]int, n)
	for i := uint64(0); i < n; i++ {
		b, err := r.bytes(20)
		if err != nil {
			return nil, nil, err
		}
		copy(ids[i][:], b)
		l, err := r.uvarint()
		if err != nil {
			return nil, nil, err
		}
		lens[i] = int(l)
	}
	return ids, lens, nil
}

// transactionHeader is the "c" segment payload: a timestamp and the byte
// offset (within the archive file) at which the matching footer "c"
// segment's block is expected to begin.
type transactionHeader struct {
	Timestamp    int64
	ExpectedFoot int64
}

func encodeTransactionHeader(h transactionHeader) []byte {
	var buf []byte
	buf = appendUvarint(buf, uint64(h.Timestamp))
	buf = appendUvarint(buf, uint64(h.ExpectedFoot))
	return buf
}

func decodeTransactionHeader(buf []byte) (transactionHeader, error) {
	r := &byteCursor{buf: buf}
	ts, err := r.uvarint()
	if err != nil {
		return transactionHeader{}, err
	}
	foot, err := r.uvarint()
	if err != nil {
		return transactionHeader{}, err
	}
	return transactionHeader{Timestamp: int64(ts), ExpectedFoot: int64(foot)}, nil
}

// --- small encode/decode helpers -------------------------------------------

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

type byteCursor struct {
	buf []byte
	pos int
}

func (c *byteCursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.buf[c.pos:])
	if n <= 0 {
		return 0, zpaqerr.NewJournalError("decode", "", zpaqerr.Truncated)
	}
	c.pos += n
	return v, nil
}

func (c *byteCursor) bytes(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, zpaqerr.NewJournalError("decode", "", zpaqerr.Truncated)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *byteCursor) byteVal() (byte, error) {
	b, err := c.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *byteCursor) str() (string, error) {
	n, err := c.uvarint()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
