package fileutil

import (
	"io"
	"os"

	"github.com/glitch-codes/winback/internal/errors"
)

// MaxMetadataSize is the maximum size of a metadata file we'll read (4MB).
// Backup manifests and installed-program listings are small; this prevents
// memory exhaustion from accidentally pointing at a data file.
const MaxMetadataSize = 4 * 1024 * 1024

// ErrFileTooLarge indicates that a file exceeded MaxMetadataSize.
var ErrFileTooLarge = errors.Newf("file exceeds maximum size of %d bytes", MaxMetadataSize)

// ReadFileWithLimit reads a file up to MaxMetadataSize.
// It returns an error if the file is larger than the limit.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	// Fail fast if the reported size is already too large
	info, err := f.Stat()
	if err == nil {
		if info.Size() > MaxMetadataSize {
			return nil, ErrFileTooLarge
		}
	}

	r := io.LimitReader(f, MaxMetadataSize+1)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	if len(data) > MaxMetadataSize {
		return nil, ErrFileTooLarge
	}

	return data, nil
}
