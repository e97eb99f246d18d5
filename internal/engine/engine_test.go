package engine

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root from a map of relative path to content.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// recordingSink captures every progress callback.
type recordingSink struct {
	paths []string
	done  []int64
	total int64
	logs  []string
}

func (s *recordingSink) Progress(done, total int64, path string) {
	s.paths = append(s.paths, path)
	s.done = append(s.done, done)
	s.total = total
}

func (s *recordingSink) Log(msg string) {
	s.logs = append(s.logs, msg)
}

func TestCopyTree_MirrorsTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"notes.txt":        "hello",
		"photos/a.jpg":     "aaa",
		"photos/sub/b.jpg": "bbbb",
	})

	res, err := CopyTree(src, dst, Policy{}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.FilesCopied)
	assert.Equal(t, int64(12), res.BytesCopied)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.False(t, res.Canceled)

	got, err := os.ReadFile(filepath.Join(dst, "photos", "sub", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(got))
}

func TestCopyTree_SkipsOversizedFiles(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"small.txt": "ok",
		"big.bin":   "0123456789",
	})

	sink := &recordingSink{}
	res, err := CopyTree(src, dst, Policy{MaxFileBytes: 5}, sink, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.FilesCopied)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, filepath.Join(src, "big.bin"), res.Skipped[0].Path)
	assert.Equal(t, int64(10), res.Skipped[0].Size)

	// The oversized file must be absent, not truncated.
	_, statErr := os.Stat(filepath.Join(dst, "big.bin"))
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, sink.logs, 1)
	assert.Contains(t, sink.logs[0], "big.bin")
}

func TestCopyTree_PerFileFailureDoesNotAbort(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"a.txt": "aaa",
		"b.txt": "bbb",
		"c.txt": "ccc",
	})

	// Blocking b.txt's destination with a directory makes that single
	// file fail while the rest of the walk proceeds.
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "b.txt"), 0o755))

	run := NewRun()
	res, err := CopyTree(src, dst, Policy{}, nil, run)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.FilesCopied)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, filepath.Join(src, "b.txt"), res.Errors[0].Path)
	assert.Equal(t, int64(1), run.Progress().Errors)
}

func TestCopyTree_DeterministicOrder(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"zebra.txt": "z",
		"alpha.txt": "a",
		"mid.txt":   "m",
	})

	sink := &recordingSink{}
	_, err := CopyTree(src, dst, Policy{}, sink, nil)
	require.NoError(t, err)

	require.Len(t, sink.paths, 3)
	assert.True(t, sort.StringsAreSorted(sink.paths))
}

// cancelAfterFirst raises the cancel flag from the first progress callback.
type cancelAfterFirst struct {
	run   *Run
	paths []string
}

func (s *cancelAfterFirst) Progress(done, total int64, path string) {
	s.paths = append(s.paths, path)
	s.run.Cancel()
}

func (s *cancelAfterFirst) Log(msg string) {}

func TestCopyTree_CancellationStopsNewFiles(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.txt": "c",
	})

	run := NewRun()
	sink := &cancelAfterFirst{run: run}
	res, err := CopyTree(src, dst, Policy{}, sink, run)

	// Cancellation is a flagged outcome, never an error.
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.Equal(t, int64(1), res.FilesCopied)

	// The file that finished before the flag stays in place.
	_, statErr := os.Stat(filepath.Join(dst, "a.txt"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dst, "b.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyTree_ProgressReportsCumulativeBytes(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{
		"a.txt": "aa",
		"b.txt": "bbb",
	})

	sink := &recordingSink{}
	_, err := CopyTree(src, dst, Policy{}, sink, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 5}, sink.done)
	assert.Equal(t, int64(5), sink.total)
}

func TestCopyTree_DoneOffsetAcrossTrees(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	dst := t.TempDir()
	writeTree(t, srcA, map[string]string{"a.txt": "aa"})
	writeTree(t, srcB, map[string]string{"b.txt": "bbb"})

	total := TreeSize(srcA, Policy{}) + TreeSize(srcB, Policy{})
	sink := &recordingSink{}
	run := NewRun()

	resA, err := CopyTree(srcA, filepath.Join(dst, "A"), Policy{TotalBytes: total}, sink, run)
	require.NoError(t, err)
	_, err = CopyTree(srcB, filepath.Join(dst, "B"), Policy{
		TotalBytes: total,
		DoneBytes:  resA.BytesCopied,
	}, sink, run)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 5}, sink.done)
	assert.Equal(t, int64(2), run.Progress().Files)
}

func TestTreeSize_RespectsPolicy(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"small.txt": "abc",
		"big.bin":   "0123456789",
	})

	assert.Equal(t, int64(13), TreeSize(src, Policy{}))
	assert.Equal(t, int64(3), TreeSize(src, Policy{MaxFileBytes: 5}))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "2.0 GB", FormatBytes(2<<30))
}
