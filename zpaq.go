// Package zpaqng is the library surface external collaborators consume:
// whole-stream Compress/Decompress over the block container, and
// OpenArchive for the journaling, deduplicating archive layer.
package zpaqng

import (
	"io"

	"zpaqng/internal/bitio"
	"zpaqng/internal/codec"
	"zpaqng/internal/container"
	"zpaqng/internal/cryptoenv"
	"zpaqng/internal/journal"
	"zpaqng/internal/zpaqerr"
)

// Compress reads all of r and writes one self-describing block to w
// using the given method preset (0 = store, 5 = maximum). A non-nil key
// wraps the on-wire stream in the crypto envelope: a plaintext preamble
// (magic + salt) followed by AES-256-CTR ciphertext keyed by the
// scrypt-derived key. The segment trailer carries the SHA-1 of the input
// so Decompress can verify the reconstruction.
func Compress(r io.Reader, w io.Writer, method int, key []byte) error {
	if method < 0 || method > 5 {
		return zpaqerr.NewCodecError("compress", zpaqerr.UnknownMethod)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return zpaqerr.Wrap(err, "compress read")
	}

	if len(key) > 0 {
		salt, err := cryptoenv.RandomBytes(cryptoenv.SaltSize)
		if err != nil {
			return err
		}
		if err := cryptoenv.WritePreamble(w, &cryptoenv.Preamble{Salt: salt}); err != nil {
			return err
		}
		cw, err := newCipherWriter(w, key, salt)
		if err != nil {
			return err
		}
		w = cw
	}

	m := codec.BuildMethod(method)
	payload, err := codec.EncodeBlock(data, m)
	if err != nil {
		return err
	}

	digest := bitio.NewDigest()
	digest.Write(data)
	sum := digest.Sum()

	block := &container.Block{
		HComp: m.HComp,
		Segments: []container.Segment{
			{Payload: payload, RawLen: len(data), Checksum: sum[:], Last: true},
		},
	}
	return container.NewWriter(w).WriteBlock(block)
}

// Decompress reads every block from r, executing each block's embedded
// bytecode to reconstruct its segments, and writes the decoded bytes to
// w in archive order. A non-nil key expects the crypto envelope written
// by Compress; a wrong key surfaces as BadKey once the first block magic
// fails to decode. Segment
// checksums, when present, are verified against the decoded bytes.
func Decompress(r io.Reader, w io.Writer, key []byte) error {
	encrypted := len(key) > 0
	if encrypted {
		pre, err := cryptoenv.ReadPreamble(r)
		if err != nil {
			return err
		}
		cr, err := newCipherReader(r, key, pre.Salt)
		if err != nil {
			return err
		}
		r = cr
	}

	cr := container.NewReader(r)
	first := true
	for {
		block, err := cr.ReadBlock()
		if err != nil {
			if zpaqerr.Is(err, zpaqerr.Truncated) && !first {
				return nil // clean end of stream
			}
			if zpaqerr.Is(err, zpaqerr.BadMagic) && first && encrypted {
				return zpaqerr.BadKey
			}
			if zpaqerr.Is(err, zpaqerr.Truncated) && first {
				return zpaqerr.Truncated
			}
			return err
		}
		first = false

		m := codec.MethodFromProgram(block.HComp, block.PComp)
		for _, seg := range block.Segments {
			raw, err := codec.DecodeBlock(seg.Payload, seg.RawLen, m)
			if err != nil {
				return err
			}
			if seg.Checksum != nil {
				digest := bitio.NewDigest()
				digest.Write(raw)
				sum := digest.Sum()
				if !equalBytes(sum[:], seg.Checksum) {
					return zpaqerr.NewCodecError("decompress", zpaqerr.ChecksumMismatch)
				}
			}
			if _, err := w.Write(raw); err != nil {
				return zpaqerr.Wrap(err, "decompress write")
			}
		}
	}
}

// OpenArchive opens (creating if necessary) the journaling archive at
// path, transparently handling the crypto envelope when key is non-nil.
func OpenArchive(path string, key []byte) (*journal.Archive, error) {
	return journal.OpenArchive(path, key)
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cipherWriter encrypts a forward-only stream at a running archive
// offset, so Compress never needs a seekable output.
type cipherWriter struct {
	w   io.Writer
	sc  *cryptoenv.StreamCipher
	off int64
}

func newCipherWriter(w io.Writer, key, salt []byte) (*cipherWriter, error) {
	derived, err := cryptoenv.DeriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	defer derived.Close()
	sc, err := cryptoenv.NewStreamCipher(derived.EncKey, salt)
	if err != nil {
		return nil, err
	}
	return &cipherWriter{w: w, sc: sc}, nil
}

func (cw *cipherWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	cw.sc.XORAt(buf, p, cw.off)
	n, err := cw.w.Write(buf)
	cw.off += int64(n)
	return n, err
}

// cipherReader is the forward-only decrypting inverse of cipherWriter.
type cipherReader struct {
	r   io.Reader
	sc  *cryptoenv.StreamCipher
	off int64
}

func newCipherReader(r io.Reader, key, salt []byte) (*cipherReader, error) {
	derived, err := cryptoenv.DeriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	defer derived.Close()
	sc, err := cryptoenv.NewStreamCipher(derived.EncKey, salt)
	if err != nil {
		return nil, err
	}
	return &cipherReader{r: r, sc: sc}, nil
}

func (cr *cipherReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.sc.XORAt(p[:n], p[:n], cr.off)
		cr.off += int64(n)
	}
	return n, err
}
