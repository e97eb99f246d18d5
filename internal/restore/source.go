package restore

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/manifest"
	"github.com/glitch-codes/winback/pkg/fileutil"
)

// TopEntry is one name at the root of a backup.
type TopEntry struct {
	Name string
	Dir  bool
}

// Source abstracts a backup location so planning and execution work the same
// way whether the backup is an uncompressed directory or a zip archive. All
// relative paths are forward-slash separated, matching how backups record
// them.
type Source interface {
	// Path is the location the source was opened from.
	Path() string

	// Compressed reports whether the source is a zip archive.
	Compressed() bool

	// TopLevel lists the entries at the backup root.
	TopLevel() ([]TopEntry, error)

	// FindManifest locates and reads the backup metadata file, searching
	// the whole backup. ok is false when no manifest file exists; a
	// manifest that exists but cannot be read still returns an error.
	FindManifest() (data []byte, name string, ok bool, err error)

	// HasDir reports whether rel names a directory in the backup.
	HasDir(rel string) bool

	// TreeSize returns the total bytes of regular files under rel.
	TreeSize(rel string) int64

	// CopyTree materializes the subtree at rel into dst with the copy
	// engine's semantics: deterministic order, per-file error tolerance,
	// cancellation checked before each file.
	CopyTree(rel, dst string, policy engine.Policy, sink engine.ProgressSink, run *engine.Run) (engine.CopyResult, error)

	// Close releases any underlying handles.
	Close() error
}

// Open opens a backup at path, auto-detecting whether it is a zip archive
// or a directory tree.
func Open(p string) (Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrapf(err, "opening backup %s", p)
	}
	if info.IsDir() {
		return &dirSource{root: p}, nil
	}
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.Wrapf(err, "opening backup archive %s", p)
	}
	return newZipSource(p, zr), nil
}

// dirSource reads an uncompressed folder backup.
type dirSource struct {
	root string
}

func (s *dirSource) Path() string     { return s.root }
func (s *dirSource) Compressed() bool { return false }
func (s *dirSource) Close() error     { return nil }

func (s *dirSource) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *dirSource) TopLevel() ([]TopEntry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading backup %s", s.root)
	}
	out := make([]TopEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		out = append(out, TopEntry{Name: de.Name(), Dir: de.IsDir()})
	}
	return out, nil
}

func (s *dirSource) FindManifest() ([]byte, string, bool, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, "", false, errors.Wrapf(err, "reading backup %s", s.root)
	}
	for _, de := range dirEntries {
		if de.IsDir() || !manifest.IsManifestName(de.Name()) {
			continue
		}
		data, err := fileutil.ReadFileWithLimit(s.abs(de.Name()))
		if err != nil {
			return nil, de.Name(), true, err
		}
		return data, de.Name(), true, nil
	}
	return nil, "", false, nil
}

func (s *dirSource) HasDir(rel string) bool {
	info, err := os.Stat(s.abs(rel))
	return err == nil && info.IsDir()
}

func (s *dirSource) TreeSize(rel string) int64 {
	return engine.TreeSize(s.abs(rel), engine.Policy{})
}

func (s *dirSource) CopyTree(rel, dst string, policy engine.Policy, sink engine.ProgressSink, run *engine.Run) (engine.CopyResult, error) {
	return engine.CopyTree(s.abs(rel), dst, policy, sink, run)
}

// zipSource reads a compressed backup without extracting it first.
type zipSource struct {
	path string
	zr   *zip.ReadCloser

	// names holds every entry name with directory markers normalized
	// away, sorted, so walks are deterministic regardless of how the
	// archive was written.
	names []string
	files map[string]*zip.File
}

func newZipSource(p string, zr *zip.ReadCloser) *zipSource {
	s := &zipSource{
		path:  p,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		s.files[name] = f
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

func (s *zipSource) Path() string     { return s.path }
func (s *zipSource) Compressed() bool { return true }
func (s *zipSource) Close() error     { return s.zr.Close() }

func (s *zipSource) isDir(name string) bool {
	if f, ok := s.files[name]; ok && f.FileInfo().IsDir() {
		return true
	}
	// Archives without explicit directory entries still imply them.
	prefix := name + "/"
	for _, n := range s.names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func (s *zipSource) TopLevel() ([]TopEntry, error) {
	seen := make(map[string]bool)
	var out []TopEntry
	for _, n := range s.names {
		top, _, _ := strings.Cut(n, "/")
		if top == "" || seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, TopEntry{Name: top, Dir: s.isDir(top)})
	}
	return out, nil
}

func (s *zipSource) FindManifest() ([]byte, string, bool, error) {
	for _, n := range s.names {
		if !manifest.IsManifestName(path.Base(n)) {
			continue
		}
		f := s.files[n]
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, n, true, errors.Wrapf(err, "reading %s", n)
		}
		data, err := io.ReadAll(io.LimitReader(rc, fileutil.MaxMetadataSize+1))
		rc.Close()
		if err != nil {
			return nil, n, true, errors.Wrapf(err, "reading %s", n)
		}
		if int64(len(data)) > fileutil.MaxMetadataSize {
			return nil, n, true, errors.Wrapf(fileutil.ErrFileTooLarge, "%s", n)
		}
		return data, n, true, nil
	}
	return nil, "", false, nil
}

func (s *zipSource) HasDir(rel string) bool {
	return s.isDir(rel)
}

func (s *zipSource) TreeSize(rel string) int64 {
	prefix := rel + "/"
	var total int64
	for _, n := range s.names {
		if n != rel && !strings.HasPrefix(n, prefix) {
			continue
		}
		if f := s.files[n]; !f.FileInfo().IsDir() {
			total += int64(f.UncompressedSize64)
		}
	}
	return total
}

func (s *zipSource) CopyTree(rel, dst string, policy engine.Policy, sink engine.ProgressSink, run *engine.Run) (engine.CopyResult, error) {
	if sink == nil {
		sink = engine.NopSink{}
	}
	if run == nil {
		run = engine.NewRun()
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return engine.CopyResult{}, errors.Wrapf(err, "creating destination %s", dst)
	}

	total := policy.TotalBytes
	if total == 0 {
		total = policy.DoneBytes + s.TreeSize(rel)
	}
	done := policy.DoneBytes

	var res engine.CopyResult
	fail := func(name string, err error) {
		res.Errors = append(res.Errors, engine.FileError{Path: name, Err: err})
		run.AddError()
		sink.Log("warning: " + name + ": " + err.Error())
	}

	prefix := rel + "/"
	for _, name := range s.names {
		if name == rel || !strings.HasPrefix(name, prefix) {
			continue
		}
		if run.Canceled() {
			break
		}

		target := filepath.Join(dst, filepath.FromSlash(strings.TrimPrefix(name, prefix)))
		f := s.files[name]

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				fail(name, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			fail(name, err)
			continue
		}

		n := int64(f.UncompressedSize64)
		res.FilesCopied++
		res.BytesCopied += n
		done += n
		run.AddFile(n)
		sink.Progress(done, total, name)
	}

	res.Canceled = run.Canceled()
	return res, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
