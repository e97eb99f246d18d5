// Package archive turns an uncompressed backup tree into a single zip file.
//
// Archiving is the last and least critical step of a compressed backup: by
// the time it runs, every file has already been copied into the staging
// tree. A failure here is therefore reported as [ErrArchiveWrite] and the
// staging tree is left untouched, so the user still holds a complete
// uncompressed backup.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glitch-codes/winback/internal/errors"
)

// ErrArchiveWrite marks a failure while producing the zip archive. The
// uncompressed source tree is intact whenever this error is returned.
var ErrArchiveWrite = errors.New("archive write failed")

// Create writes a zip archive at zipPath containing the tree rooted at
// srcDir. Entry names inside the archive are relative to srcDir and always
// forward-slash separated. Empty directories are preserved as explicit
// directory entries. On any failure the partially written archive is
// removed and srcDir is left as it was.
func Create(srcDir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return errors.Wrapf(ErrArchiveWrite, "creating %s: %v", zipPath, err)
	}

	zw := zip.NewWriter(out)
	err = addTree(zw, srcDir)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		if errors.Is(err, ErrArchiveWrite) {
			return err
		}
		return errors.Wrapf(ErrArchiveWrite, "%v", err)
	}
	return nil
}

func addTree(zw *zip.Writer, srcDir string) error {
	return filepath.WalkDir(srcDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(ErrArchiveWrite, "walking %s: %v", p, err)
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return errors.Wrapf(ErrArchiveWrite, "%v", err)
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if d.IsDir() {
			// Trailing slash makes this a directory entry, which is
			// what keeps empty folders across the round trip.
			if _, err := zw.Create(name + "/"); err != nil {
				return errors.Wrapf(ErrArchiveWrite, "adding %s: %v", name, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		w, err := zw.Create(name)
		if err != nil {
			return errors.Wrapf(ErrArchiveWrite, "adding %s: %v", name, err)
		}
		in, err := os.Open(p)
		if err != nil {
			return errors.Wrapf(ErrArchiveWrite, "reading %s: %v", p, err)
		}
		_, err = io.Copy(w, in)
		in.Close()
		if err != nil {
			return errors.Wrapf(ErrArchiveWrite, "compressing %s: %v", p, err)
		}
		return nil
	})
}

// IsArchive reports whether the path names a zip backup by extension.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}
