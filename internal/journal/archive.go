// Package journal implements the deduplicating, versioned archive layer
// on top of the block/segment container: fragment identity and storage,
// per-version file indexes, crash-safe transaction commit, and a logical
// rollback view.
package journal

import (
	"bytes"
	"io"

	"zpaqng/internal/bitio"
	"zpaqng/internal/codec"
	"zpaqng/internal/container"
	"zpaqng/internal/telemetry"
	"zpaqng/internal/zpaqerr"
)

// defaultMaxFragment matches the reference's 64 KiB average fragment
// size at the 1/4 ratio the chunker produces.
const defaultMaxFragment = 256 * 1024

// defaultMethodLevel is the compression preset used for every segment
// this package writes. It is not recorded explicitly in the archive:
// a decoder only needs the embedded bytecode, never the preset number.
const defaultMethodLevel = 3

// FileInput is one path submitted to Add.
type FileInput struct {
	Path    string
	Data    []byte
	ModTime int64
	Attrs   uint32
}

// ExtractResult is one path's reconstructed bytes and metadata.
type ExtractResult struct {
	Path    string
	Data    []byte
	ModTime int64
	Attrs   uint32
}

// CorruptPath is a per-path failure surfaced by Verify without aborting
// the rest of the scan.
type CorruptPath struct {
	Path string
	Err  error
}

// Archive is an open journaling archive backed by a random-access file.
// A single coordinator owns the file descriptor and is the
// sole writer; Archive is not safe for concurrent mutation from multiple
// goroutines.
type Archive struct {
	f        io.ReadWriteSeeker
	table    *FragmentTable
	versions []VersionRecord
}

// Open replays every committed transaction in f (which must support
// reading, writing, and seeking) to rebuild the fragment table and
// version history, then returns an Archive ready for further operations.
// An empty f is a valid, empty archive.
func Open(f io.ReadWriteSeeker) (*Archive, error) {
	a := &Archive{f: f, table: NewFragmentTable()}
	if err := a.replay(); err != nil {
		return nil, err
	}
	return a, nil
}

// Versions returns every committed version, oldest first.
func (a *Archive) Versions() []VersionRecord { return a.versions }

// replay scans the archive from the start, applying only transactions
// whose header and footer "c" segments both appear and agree.
func (a *Archive) replay() error {
	if _, err := a.f.Seek(0, io.SeekStart); err != nil {
		return zpaqerr.Wrap(err, "journal replay")
	}
	r := container.NewReader(a.f)

	for {
		offset := r.Offset()
		block, err := r.ReadBlock()
		if err != nil {
			if zpaqerr.Is(err, zpaqerr.Truncated) {
				return nil // clean end of stream, or a dangling partial block: stop.
			}
			if zpaqerr.IsCorrupt(err) {
				telemetry.Warn("resync after corrupt block",
					telemetry.String("span", string(telemetry.SpanBlock)),
					telemetry.Int64("offset", offset),
					telemetry.Err(err))
				if rerr := r.Resync(); rerr != nil {
					return nil
				}
				continue
			}
			return err
		}
		if err := a.applyBlock(block, offset); err != nil {
			// Replay stops at the first transaction that fails to
			// apply: it and every block after it are silently dropped,
			// never surfaced as an error (crash-safe append).
			return nil
		}
	}
}

func (a *Archive) applyBlock(block *container.Block, blockOffset int64) error {
	if len(block.Segments) < 2 {
		return nil
	}
	first, last := block.Segments[0], block.Segments[len(block.Segments)-1]
	if first.Filename != "c" || last.Filename != "c" {
		return nil
	}

	m := codec.MethodFromProgram(block.HComp, block.PComp)

	hdrPlain, err := codec.DecodeBlock(first.Payload, first.RawLen, m)
	if err != nil {
		return err
	}
	hdr, err := decodeTransactionHeader(hdrPlain)
	if err != nil {
		return err
	}

	footPlain, err := codec.DecodeBlock(last.Payload, last.RawLen, m)
	if err != nil {
		return err
	}
	foot, err := decodeTransactionHeader(footPlain)
	if err != nil {
		return err
	}
	if foot.ExpectedFoot != hdr.ExpectedFoot || hdr.ExpectedFoot != blockOffset {
		return zpaqerr.NewJournalError("replay", "", zpaqerr.BadHeader)
	}

	var paths []PathRecord
	var dataBytes []byte
	var fragIDs []FragmentID
	var fragLens []int

	for _, seg := range block.Segments[1 : len(block.Segments)-1] {
		switch seg.Filename {
		case "d":
			raw, err := codec.DecodeBlock(seg.Payload, seg.RawLen, m)
			if err != nil {
				return err
			}
			dataBytes = raw
		case "h":
			raw, err := codec.DecodeBlock(seg.Payload, seg.RawLen, m)
			if err != nil {
				return err
			}
			ids, lens, err := decodeFragmentIndex(raw)
			if err != nil {
				return err
			}
			fragIDs, fragLens = ids, lens
		case "i":
			raw, err := codec.DecodeBlock(seg.Payload, seg.RawLen, m)
			if err != nil {
				return err
			}
			p, err := decodeFileIndex(raw)
			if err != nil {
				return err
			}
			paths = p
		}
	}

	off := 0
	for i, id := range fragIDs {
		a.table.Record(id, FragmentRef{BlockOffset: blockOffset, Start: off, Length: fragLens[i]})
		off += fragLens[i]
	}
	_ = dataBytes

	a.versions = append(a.versions, VersionRecord{
		ID:        len(a.versions) + 1,
		Timestamp: hdr.Timestamp,
		Paths:     paths,
	})
	return nil
}

// Add chunks and dedups every file in files, writing one new committed
// version. Fragments already present in the table are referenced, not
// re-stored.
func (a *Archive) Add(files []FileInput, timestamp int64) (int, error) {
	blockOffset, err := a.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, zpaqerr.Wrap(err, "journal add")
	}

	var dataBuf []byte
	var newIDs []FragmentID
	var newLens []int
	var paths []PathRecord

	for _, fi := range files {
		c := NewChunker(defaultMaxFragment)
		var chunks [][]byte
		c.Split(fi.Data, func(chunk []byte) { chunks = append(chunks, append([]byte(nil), chunk...)) })
		c.Flush(func(chunk []byte) { chunks = append(chunks, append([]byte(nil), chunk...)) })

		frags := make([]FragmentID, 0, len(chunks))
		for _, chunk := range chunks {
			id := HashFragment(chunk)
			frags = append(frags, id)
			if _, known := a.table.Lookup(id); known {
				continue
			}
			ref := FragmentRef{BlockOffset: blockOffset, Start: len(dataBuf), Length: len(chunk)}
			a.table.Record(id, ref)
			newIDs = append(newIDs, id)
			newLens = append(newLens, len(chunk))
			dataBuf = append(dataBuf, chunk...)
		}

		paths = append(paths, PathRecord{
			Path: fi.Path, Size: int64(len(fi.Data)), ModTime: fi.ModTime,
			Attrs: fi.Attrs, Fragments: frags,
		})
	}

	if err := a.writeTransaction(blockOffset, timestamp, dataBuf, newIDs, newLens, paths); err != nil {
		return 0, err
	}

	versionID := len(a.versions) + 1
	a.versions = append(a.versions, VersionRecord{ID: versionID, Timestamp: timestamp, Paths: paths})
	telemetry.Event(telemetry.SpanFragment, int64(sumLen(files)), int64(len(dataBuf)), 0, "add", 1)
	return versionID, nil
}

// Remove records a deletion for each path, writing a new version whose
// tombstone records carry no fragments.
func (a *Archive) Remove(paths []string, timestamp int64) (int, error) {
	blockOffset, err := a.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, zpaqerr.Wrap(err, "journal remove")
	}
	recs := make([]PathRecord, 0, len(paths))
	for _, p := range paths {
		recs = append(recs, PathRecord{Path: p, ModTime: timestamp, Tombstone: true})
	}
	if err := a.writeTransaction(blockOffset, timestamp, nil, nil, nil, recs); err != nil {
		return 0, err
	}
	versionID := len(a.versions) + 1
	a.versions = append(a.versions, VersionRecord{ID: versionID, Timestamp: timestamp, Paths: recs})
	return versionID, nil
}

func (a *Archive) writeTransaction(blockOffset, timestamp int64, dataBuf []byte, ids []FragmentID, lens []int, paths []PathRecord) error {
	m := codec.BuildMethod(defaultMethodLevel)
	hdrBytes := encodeTransactionHeader(transactionHeader{Timestamp: timestamp, ExpectedFoot: blockOffset})

	hdrSeg, err := encodeSegment("c", hdrBytes, m)
	if err != nil {
		return err
	}
	footSeg, err := encodeSegment("c", hdrBytes, m)
	if err != nil {
		return err
	}

	segs := []container.Segment{hdrSeg}
	if len(dataBuf) > 0 {
		dSeg, err := encodeSegment("d", dataBuf, m)
		if err != nil {
			return err
		}
		digest := bitio.NewDigest()
		digest.Write(dataBuf)
		sum := digest.Sum()
		dSeg.Checksum = sum[:]
		hSeg, err := encodeSegment("h", encodeFragmentIndex(ids, lens), m)
		if err != nil {
			return err
		}
		segs = append(segs, dSeg, hSeg)
	}
	iSeg, err := encodeSegment("i", encodeFileIndex(paths), m)
	if err != nil {
		return err
	}
	segs = append(segs, iSeg, footSeg)
	segs[len(segs)-1].Last = true

	block := &container.Block{HComp: m.HComp, Segments: segs}
	if err := container.NewWriter(a.f).WriteBlock(block); err != nil {
		return err
	}
	if resealer, ok := a.f.(interface{ Reseal() error }); ok {
		return resealer.Reseal()
	}
	return nil
}

func encodeSegment(filename string, data []byte, m *codec.Method) (container.Segment, error) {
	coded, err := codec.EncodeBlock(data, m)
	if err != nil {
		return container.Segment{}, err
	}
	return container.Segment{Filename: filename, Payload: coded, RawLen: len(data)}, nil
}

// List folds every version up to and including v (0 means the latest
// committed version) and returns the set of live paths.
func (a *Archive) List(v int) []PathRecord {
	if v <= 0 || v > len(a.versions) {
		v = len(a.versions)
	}
	live := map[string]PathRecord{}
	for i := 0; i < v; i++ {
		for _, p := range a.versions[i].Paths {
			if p.Tombstone {
				delete(live, p.Path)
				continue
			}
			live[p.Path] = p
		}
	}
	out := make([]PathRecord, 0, len(live))
	for _, p := range live {
		out = append(out, p)
	}
	return out
}

// Extract reconstructs one path's bytes as of version v (0 = latest).
func (a *Archive) Extract(path string, v int) (*ExtractResult, error) {
	for _, p := range a.List(v) {
		if p.Path != path {
			continue
		}
		data, err := a.readFragments(p.Fragments)
		if err != nil {
			return nil, err
		}
		return &ExtractResult{Path: p.Path, Data: data, ModTime: p.ModTime, Attrs: p.Attrs}, nil
	}
	return nil, zpaqerr.NewJournalError("extract", path, zpaqerr.BadVersion)
}

func (a *Archive) readFragments(ids []FragmentID) ([]byte, error) {
	blockCache := map[int64][]byte{}
	var out []byte
	for _, id := range ids {
		ref, ok := a.table.Lookup(id)
		if !ok {
			return nil, zpaqerr.NewJournalError("extract", "", zpaqerr.ChecksumMismatch)
		}
		data, ok := blockCache[ref.BlockOffset]
		if !ok {
			var err error
			data, err = a.readDataSegment(ref.BlockOffset)
			if err != nil {
				return nil, err
			}
			blockCache[ref.BlockOffset] = data
		}
		if ref.Start+ref.Length > len(data) {
			return nil, zpaqerr.NewJournalError("extract", "", zpaqerr.Truncated)
		}
		out = append(out, data[ref.Start:ref.Start+ref.Length]...)
	}
	return out, nil
}

func (a *Archive) readDataSegment(blockOffset int64) ([]byte, error) {
	if _, err := a.f.Seek(blockOffset, io.SeekStart); err != nil {
		return nil, zpaqerr.Wrap(err, "journal extract")
	}
	r := container.NewReader(a.f)
	block, err := r.ReadBlock()
	if err != nil {
		return nil, err
	}
	m := codec.MethodFromProgram(block.HComp, block.PComp)
	for _, seg := range block.Segments {
		if seg.Filename == "d" {
			raw, err := codec.DecodeBlock(seg.Payload, seg.RawLen, m)
			if err != nil {
				return nil, err
			}
			if seg.Checksum != nil {
				digest := bitio.NewDigest()
				digest.Write(raw)
				sum := digest.Sum()
				if !bytes.Equal(sum[:], seg.Checksum) {
					return nil, zpaqerr.NewJournalError("extract", "", zpaqerr.ChecksumMismatch)
				}
			}
			return raw, nil
		}
	}
	return nil, zpaqerr.NewJournalError("extract", "", zpaqerr.BadHeader)
}

// Verify re-derives every live fragment's bytes and checks its SHA-1
// against the identity it is stored under, reporting failures per path
// without aborting.
func (a *Archive) Verify() []CorruptPath {
	var bad []CorruptPath
	for _, p := range a.List(0) {
		if p.Tombstone {
			continue
		}
		for _, id := range p.Fragments {
			ref, ok := a.table.Lookup(id)
			if !ok {
				bad = append(bad, CorruptPath{Path: p.Path, Err: zpaqerr.ChecksumMismatch})
				break
			}
			data, err := a.readDataSegment(ref.BlockOffset)
			if err != nil {
				bad = append(bad, CorruptPath{Path: p.Path, Err: err})
				break
			}
			if ref.Start+ref.Length > len(data) {
				bad = append(bad, CorruptPath{Path: p.Path, Err: zpaqerr.Truncated})
				break
			}
			if HashFragment(data[ref.Start:ref.Start+ref.Length]) != id {
				bad = append(bad, CorruptPath{Path: p.Path, Err: zpaqerr.ChecksumMismatch})
				break
			}
		}
	}
	return bad
}

// Compact rewrites a fresh archive to dst containing only the fragments
// live at the current tail, collapsed into a single version.
func (a *Archive) Compact(dst io.ReadWriteSeeker) (*Archive, error) {
	live := a.List(0)
	files := make([]FileInput, 0, len(live))
	for _, p := range live {
		data, err := a.readFragments(p.Fragments)
		if err != nil {
			return nil, err
		}
		files = append(files, FileInput{Path: p.Path, Data: data, ModTime: p.ModTime, Attrs: p.Attrs})
	}

	out, err := Open(dst)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		if _, err := out.Add(files, latestTimestamp(live)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func latestTimestamp(paths []PathRecord) int64 {
	var max int64
	for _, p := range paths {
		if p.ModTime > max {
			max = p.ModTime
		}
	}
	return max
}

func sumLen(files []FileInput) int {
	n := 0
	for _, f := range files {
		n += len(f.Data)
	}
	return n
}
