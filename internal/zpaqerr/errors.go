// Package zpaqerr provides typed errors for archive operations.
// This enables callers to use errors.Is()/errors.As() for specific handling,
// matching the error kinds named by the container and journaling formats.
package zpaqerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kinds an archive operation can fail with.
// Use errors.Is(err, zpaqerr.Truncated) to check for a specific kind.
var (
	Truncated        = errors.New("truncated stream")
	BadMagic         = errors.New("bad block magic")
	BadHeader        = errors.New("bad zpaql program header")
	VmRuntime        = errors.New("zpaql vm runtime error")
	CoderRange       = errors.New("arithmetic coder range violation")
	ChecksumMismatch = errors.New("segment checksum mismatch")
	MacMismatch      = errors.New("ciphertext authentication failed")
	BadKey           = errors.New("wrong password or corrupt key envelope")
	BadVersion       = errors.New("requested version beyond committed tail")
	UnknownMethod    = errors.New("unknown compression method")
	Io               = errors.New("i/o error")

	// Cancelled is returned when an operation observes a cooperative
	// cancel flag; the CLI's add command checks it at file boundaries.
	Cancelled = errors.New("operation cancelled")
)

// CodecError wraps an error occurring inside the VM/predictor/coder pipeline
// (C3-C6) with the operation that was in flight.
type CodecError struct {
	Op  string // e.g. "vm", "header", "program", "preamble", "compress", "decompress"
	Err error
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("codec %s failed", e.Op)
}

func (e *CodecError) Unwrap() error { return e.Err }

// NewCodecError creates a new CodecError.
func NewCodecError(op string, err error) *CodecError {
	return &CodecError{Op: op, Err: err}
}

// ContainerError wraps an error in block/segment framing (C7) with the
// byte offset at which it was detected, so resync diagnostics can report it.
type ContainerError struct {
	Op     string // "read-magic", "read-header", "read-segment", "resync"
	Offset int64
	Err    error
}

func (e *ContainerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container %s at offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("container %s at offset %d failed", e.Op, e.Offset)
}

func (e *ContainerError) Unwrap() error { return e.Err }

// NewContainerError creates a new ContainerError.
func NewContainerError(op string, offset int64, err error) *ContainerError {
	return &ContainerError{Op: op, Offset: offset, Err: err}
}

// JournalError wraps an error in the fragment/version/dedup layer (C8)
// with the path or version it concerns.
type JournalError struct {
	Op   string // "replay", "extract", "decode"
	Path string
	Err  error
}

func (e *JournalError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("journal %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *JournalError) Unwrap() error { return e.Err }

// NewJournalError creates a new JournalError.
func NewJournalError(op, path string, err error) *JournalError {
	return &JournalError{Op: op, Path: path, Err: err}
}

// Is reports whether err matches target, delegating to errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target, delegating to errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Wrap adds context to err while preserving the chain for errors.Is/As.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsCancelled reports whether err indicates a cooperative cancellation.
func IsCancelled(err error) bool { return errors.Is(err, Cancelled) }

// IsCorrupt reports whether err indicates detected data corruption.
func IsCorrupt(err error) bool {
	return errors.Is(err, BadMagic) || errors.Is(err, BadHeader) ||
		errors.Is(err, ChecksumMismatch) || errors.Is(err, CoderRange)
}
