package container

import (
	"bytes"
	"io"

	"zpaqng/internal/zpaqerr"
)

// Resync scans forward byte-by-byte for the next occurrence of Magic,
// leaving the reader positioned at it so ReadBlock can continue.
func (r *Reader) Resync() error {
	for {
		head, err := r.br.Peek(len(Magic))
		if len(head) < len(Magic) {
			if err == nil || err == io.EOF {
				return zpaqerr.NewContainerError("resync", r.offset, zpaqerr.Truncated)
			}
			return zpaqerr.NewContainerError("resync", r.offset, zpaqerr.Wrap(err, "resync read"))
		}
		if bytes.Equal(head, Magic[:]) {
			return nil
		}
		if _, err := r.br.Discard(1); err != nil {
			return zpaqerr.NewContainerError("resync", r.offset, zpaqerr.Wrap(err, "resync read"))
		}
		r.offset++
	}
}

// ReadBlockResync reads the next block, resynchronizing first if the
// reader is not currently positioned at a valid magic. It never returns a
// BadMagic error: a magic mismatch triggers a resync attempt instead.
func (r *Reader) ReadBlockResync() (*Block, error) {
	b, err := r.ReadBlock()
	if err == nil {
		return b, nil
	}
	if !zpaqerr.Is(err, zpaqerr.BadMagic) && !zpaqerr.Is(err, zpaqerr.BadHeader) {
		return nil, err
	}
	if rerr := r.Resync(); rerr != nil {
		return nil, rerr
	}
	return r.ReadBlock()
}
