package cryptoenv

import (
	"bytes"
	"io"

	"zpaqng/internal/util"
	"zpaqng/internal/zpaqerr"
)

// EncryptedFile presents an AES-256-CTR encrypted region of an underlying
// file as a plain io.ReadWriteSeeker: archive offset 0 in the logical
// stream maps to PreambleSize in the backing file, letting the container
// and journal layers stay entirely unaware of encryption.
//
// It also authenticates the ciphertext it wraps: a keyed BLAKE2b tag
// over every ciphertext byte trails the payload, checked once at
// construction and rewritten by
// Reseal after each commit. The trailer is invisible to callers — Seek,
// Read, and Write all operate purely in terms of the payload span.
type EncryptedFile struct {
	back   io.ReadWriteSeeker
	cipher *StreamCipher
	pos    int64 // logical position, excluding the preamble and trailer

	macKey     []byte
	payloadEnd int64 // length of the ciphertext payload, excluding the trailer
}

// NewEncryptedFile wraps back, whose first PreambleSize bytes are assumed
// to already be the plaintext preamble (magic + salt) and whose remaining
// bytes are the AES-CTR ciphertext keyed by cipher, followed by a MACSize
// trailer once any payload has been committed. If back already carries a
// payload, the stored trailer is verified against a freshly computed MAC
// over that payload; a mismatch is zpaqerr.MacMismatch, a payload shorter
// than the trailer itself is zpaqerr.Truncated.
func NewEncryptedFile(back io.ReadWriteSeeker, cipher *StreamCipher, macKey []byte) (*EncryptedFile, error) {
	e := &EncryptedFile{back: back, cipher: cipher, macKey: append([]byte(nil), macKey...)}

	backSize, err := back.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, zpaqerr.Wrap(err, "cryptoenv open")
	}
	payload := backSize - int64(PreambleSize)
	switch {
	case payload <= 0:
		e.payloadEnd = 0
	case payload < MACSize:
		return nil, zpaqerr.Truncated
	default:
		e.payloadEnd = payload - MACSize
		tag, err := e.computeMAC(e.payloadEnd)
		if err != nil {
			return nil, err
		}
		stored := make([]byte, MACSize)
		if _, err := e.back.Seek(int64(PreambleSize)+e.payloadEnd, io.SeekStart); err != nil {
			return nil, zpaqerr.Wrap(err, "cryptoenv read trailer")
		}
		if _, err := io.ReadFull(e.back, stored); err != nil {
			return nil, zpaqerr.Wrap(err, "cryptoenv read trailer")
		}
		if !bytes.Equal(tag, stored) {
			return nil, zpaqerr.MacMismatch
		}
	}
	return e, nil
}

// computeMAC returns the keyed tag over the first n ciphertext bytes of
// the payload (i.e. back[PreambleSize: PreambleSize+n)).
func (e *EncryptedFile) computeMAC(n int64) ([]byte, error) {
	mac, err := NewMAC(e.macKey)
	if err != nil {
		return nil, err
	}
	if _, err := e.back.Seek(int64(PreambleSize), io.SeekStart); err != nil {
		return nil, zpaqerr.Wrap(err, "cryptoenv mac")
	}
	if _, err := io.CopyN(mac, e.back, n); err != nil {
		return nil, zpaqerr.Wrap(err, "cryptoenv mac")
	}
	return mac.Sum(nil), nil
}

// Reseal recomputes the ciphertext MAC over the current payload and
// rewrites the trailer immediately after it. Callers commit a transaction
// (write its ciphertext), then Reseal so the trailer a future Open checks
// always matches the last thing actually written.
func (e *EncryptedFile) Reseal() error {
	tag, err := e.computeMAC(e.payloadEnd)
	if err != nil {
		return err
	}
	if _, err := e.back.Seek(int64(PreambleSize)+e.payloadEnd, io.SeekStart); err != nil {
		return zpaqerr.Wrap(err, "cryptoenv reseal")
	}
	_, err = e.back.Write(tag)
	return zpaqerr.Wrap(err, "cryptoenv reseal")
}

func (e *EncryptedFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		e.pos = offset
	case io.SeekCurrent:
		e.pos += offset
	case io.SeekEnd:
		e.pos = e.payloadEnd + offset
	}
	return e.pos, nil
}

// Read never exposes the trailer: a request that would read past the
// known payload end is clamped, and a position at or beyond it is EOF, so
// the container layer's replay cleanly stops instead of trying to parse
// trailer bytes as archive content.
func (e *EncryptedFile) Read(p []byte) (int, error) {
	if e.pos >= e.payloadEnd {
		return 0, io.EOF
	}
	if want := e.payloadEnd - e.pos; int64(len(p)) > want {
		p = p[:want]
	}
	if _, err := e.back.Seek(e.pos+int64(PreambleSize), io.SeekStart); err != nil {
		return 0, err
	}
	n, err := e.back.Read(p)
	if n > 0 {
		e.cipher.XORAt(p[:n], p[:n], e.pos)
		e.pos += int64(n)
	}
	return n, err
}

// Write encrypts p in MiB-sized chunks, staging the ciphertext in a pooled
// buffer instead of allocating one per call. The pool's Put zeroes the
// chunk before it is reused, so ciphertext from one write never lingers
// in a buffer handed to an unrelated one.
func (e *EncryptedFile) Write(p []byte) (int, error) {
	if _, err := e.back.Seek(e.pos+int64(PreambleSize), io.SeekStart); err != nil {
		return 0, err
	}
	var total int
	for len(p) > 0 {
		buf := util.GetMiBBuffer()
		n := copy(buf, p)
		chunk := buf[:n]
		e.cipher.XORAt(chunk, p[:n], e.pos)

		written, err := e.back.Write(chunk)
		util.PutMiBBuffer(buf)
		e.pos += int64(written)
		if e.pos > e.payloadEnd {
			e.payloadEnd = e.pos
		}
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}
