package journal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) (*memFile, *Archive) {
	t.Helper()
	f := &memFile{}
	a, err := Open(f)
	require.NoError(t, err)
	return f, a
}

func TestEmptyArchiveHasNoVersions(t *testing.T) {
	_, a := openMem(t)
	require.Empty(t, a.Versions())
	require.Empty(t, a.List(0))
}

func TestAddExtractRoundTrip(t *testing.T) {
	_, a := openMem(t)
	v, err := a.Add([]FileInput{{Path: "hello.txt", Data: []byte("hello"), ModTime: 100}}, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	res, err := a.Extract("hello.txt", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), res.Data)
	require.Equal(t, int64(100), res.ModTime)
}

func TestDedupAcrossFilesSingleFragment(t *testing.T) {
	_, a := openMem(t)
	payload := bytes.Repeat([]byte{0x41}, 1<<20)
	_, err := a.Add([]FileInput{
		{Path: "a.txt", Data: payload, ModTime: 1},
		{Path: "b.txt", Data: payload, ModTime: 2},
	}, 1000)
	require.NoError(t, err)

	require.Equal(t, 1, a.table.Len(), "identical content must dedup to exactly one fragment")

	ra, err := a.Extract("a.txt", 0)
	require.NoError(t, err)
	rb, err := a.Extract("b.txt", 0)
	require.NoError(t, err)
	require.Equal(t, payload, ra.Data)
	require.Equal(t, payload, rb.Data)
}

func TestIncrementalUpdateDedupsUnchangedBytes(t *testing.T) {
	_, a := openMem(t)
	zeros := make([]byte, 10*1024)

	_, err := a.Add([]FileInput{{Path: "x", Data: zeros, ModTime: 1}}, 1000)
	require.NoError(t, err)
	fragsAfterV1 := a.table.Len()

	v2, err := a.Add([]FileInput{{Path: "x", Data: zeros, ModTime: 2}}, 2000)
	require.NoError(t, err)
	require.Equal(t, 2, v2)
	require.Equal(t, fragsAfterV1, a.table.Len(), "rewriting identical bytes must not add new fragments")

	res1, err := a.Extract("x", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), res1.ModTime)

	res2, err := a.Extract("x", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), res2.ModTime)
	require.Equal(t, zeros, res2.Data)
}

func TestRemoveTombstonesPath(t *testing.T) {
	_, a := openMem(t)
	_, err := a.Add([]FileInput{{Path: "gone.txt", Data: []byte("bye"), ModTime: 1}}, 1000)
	require.NoError(t, err)

	v2, err := a.Remove([]string{"gone.txt"}, 2000)
	require.NoError(t, err)
	require.Equal(t, 2, v2)

	require.Empty(t, a.List(0))
	require.Len(t, a.List(1), 1, "the path must still be visible at the prior version")

	_, err = a.Extract("gone.txt", 0)
	require.Error(t, err)
}

func TestRollbackViewStableAfterLaterVersions(t *testing.T) {
	_, a := openMem(t)
	_, err := a.Add([]FileInput{{Path: "x", Data: []byte("v1 bytes"), ModTime: 1}}, 1000)
	require.NoError(t, err)
	_, err = a.Add([]FileInput{{Path: "x", Data: []byte("v2 bytes")}}, 2000)
	require.NoError(t, err)
	_, err = a.Add([]FileInput{{Path: "y", Data: []byte("unrelated")}}, 3000)
	require.NoError(t, err)

	res, err := a.Extract("x", 1)
	require.NoError(t, err)
	require.Equal(t, []byte("v1 bytes"), res.Data)

	res2, err := a.Extract("x", 2)
	require.NoError(t, err)
	require.Equal(t, []byte("v2 bytes"), res2.Data)
}

func TestVerifyDetectsNoCorruptionOnCleanArchive(t *testing.T) {
	_, a := openMem(t)
	_, err := a.Add([]FileInput{{Path: "a", Data: []byte("some bytes")}}, 1000)
	require.NoError(t, err)
	require.Empty(t, a.Verify())
}

func TestCrashMidCommitIgnoresTornTransaction(t *testing.T) {
	f, a := openMem(t)
	_, err := a.Add([]FileInput{{Path: "a", Data: []byte("version one")}}, 1000)
	require.NoError(t, err)

	_, err = a.Add([]FileInput{{Path: "b", Data: []byte("version two")}}, 2000)
	require.NoError(t, err)

	// Simulate a crash mid-commit: truncate the last byte of the archive.
	f.truncateBytes(1)

	reopened, err := Open(f)
	require.NoError(t, err)
	require.Len(t, reopened.Versions(), 1, "the torn transaction must be dropped, not surfaced as an error")

	v3, err := reopened.Add([]FileInput{{Path: "c", Data: []byte("version three")}}, 3000)
	require.NoError(t, err)
	require.Equal(t, 2, v3, "a fresh commit after a crash must still succeed")
}

func TestCompactDropsDeadFragments(t *testing.T) {
	_, a := openMem(t)
	_, err := a.Add([]FileInput{{Path: "keep", Data: []byte("keep me")}}, 1000)
	require.NoError(t, err)
	_, err = a.Add([]FileInput{{Path: "drop", Data: []byte("drop me")}}, 2000)
	require.NoError(t, err)
	_, err = a.Remove([]string{"drop"}, 3000)
	require.NoError(t, err)

	dst := &memFile{}
	out, err := a.Compact(dst)
	require.NoError(t, err)

	res, err := out.Extract("keep", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("keep me"), res.Data)

	_, err = out.Extract("drop", 0)
	require.Error(t, err, "a compacted archive must not resurrect a removed path")
}
