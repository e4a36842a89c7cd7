package journal

import (
	"io"
	"os"

	"zpaqng/internal/container"
	"zpaqng/internal/cryptoenv"
	"zpaqng/internal/zpaqerr"
)

// OpenArchive opens (creating if necessary) the archive file at path and
// returns a ready Archive, transparently handling the crypto envelope
// when password is non-empty.
func OpenArchive(path string, password []byte) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, zpaqerr.Wrap(err, "journal open")
	}
	store, err := wrapBackingFile(f, password)
	if err != nil {
		f.Close()
		return nil, err
	}
	return Open(store)
}

// OpenBackingStore is the file-handling half of OpenArchive without the
// replay: it opens (creating if necessary) path and wraps it in the
// crypto envelope when password is non-empty, returning a store ready
// to hand to Open or Archive.Compact. Used by the CLI's compact command,
// which needs a fresh destination store sharing the source's envelope
// before an Archive exists around it.
func OpenBackingStore(path string, password []byte) (io.ReadWriteSeeker, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, zpaqerr.Wrap(err, "journal open")
	}
	store, err := wrapBackingFile(f, password)
	if err != nil {
		f.Close()
		return nil, err
	}
	return store, nil
}

func wrapBackingFile(f *os.File, password []byte) (io.ReadWriteSeeker, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, zpaqerr.Wrap(err, "journal open")
	}

	if len(password) == 0 {
		return f, nil
	}

	var salt []byte
	if info.Size() == 0 {
		salt, err = cryptoenv.RandomBytes(cryptoenv.SaltSize)
		if err != nil {
			return nil, err
		}
		if err := cryptoenv.WritePreamble(f, &cryptoenv.Preamble{Salt: salt}); err != nil {
			return nil, err
		}
	} else {
		pre, err := cryptoenv.ReadPreamble(f)
		if err != nil {
			return nil, err
		}
		salt = pre.Salt
	}

	derived, err := cryptoenv.DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	sc, err := cryptoenv.NewStreamCipher(derived.EncKey, salt)
	if err != nil {
		derived.Close()
		return nil, err
	}
	ef, err := cryptoenv.NewEncryptedFile(f, sc, derived.MacKey)
	derived.Close()
	if err != nil {
		return nil, err
	}

	if info.Size() > int64(cryptoenv.PreambleSize) {
		if err := verifyKey(ef); err != nil {
			return nil, err
		}
	}
	return ef, nil
}

// verifyKey checks that the derived key reproduces the container block
// magic at the start of the decrypted stream, surfacing a wrong password
// as BadKey rather than letting it manifest as generic parse noise.
func verifyKey(ef *cryptoenv.EncryptedFile) error {
	if _, err := ef.Seek(0, io.SeekStart); err != nil {
		return zpaqerr.Wrap(err, "journal verify key")
	}
	head := make([]byte, len(container.Magic))
	if _, err := io.ReadFull(ef, head); err != nil {
		return zpaqerr.Truncated
	}
	if _, err := ef.Seek(0, io.SeekStart); err != nil {
		return zpaqerr.Wrap(err, "journal verify key")
	}
	return cryptoenv.VerifyFirstBlockMagic(head, container.Magic[:])
}
