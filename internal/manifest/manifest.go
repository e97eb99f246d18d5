package manifest

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/pkg/fileutil"
)

// Backup modes recorded in the manifest.
const (
	ModeCompressed = "compressed"
	ModeFolder     = "folder"
)

const (
	// FilePrefix is the common prefix of every manifest file name. Lookup
	// matches on the prefix so both the timestamped folder-mode name and
	// the plain in-archive name are found.
	FilePrefix = "Backup_Metadata"

	// ArchiveFileName is the fixed manifest name inside a zip archive.
	ArchiveFileName = FilePrefix + ".json"
)

// ErrManifestParse marks a manifest that exists but cannot be decoded or
// fails validation. Restore treats it as a downgrade signal, not a fatal
// error: the backup contents are still intact and can be restored by
// folder-name heuristics.
var ErrManifestParse = errors.New("manifest unreadable")

// Entry records one backed-up folder: where it came from, what it is, and
// where it lives inside the backup.
type Entry struct {
	// OriginalPath is the absolute source path on the machine that took
	// the backup. Informational for known kinds (restore re-resolves
	// those), authoritative for custom folders.
	OriginalPath string `json:"originalPath"`

	// Kind is the folder kind name, or "Custom".
	Kind string `json:"kind"`

	// RelativeBackupPath locates the folder inside the backup, always
	// forward-slash separated.
	RelativeBackupPath string `json:"relativeBackupPath"`
}

// Manifest is the metadata document written alongside every backup. It is
// what lets a restore on a different machine or under a different username
// put folders back in the right place.
type Manifest struct {
	CreatedAt                 time.Time `json:"createdAt"`
	OriginalUsername          string    `json:"originalUsername"`
	BackupMode                string    `json:"backupMode"`
	DownloadLimitEnabled      bool      `json:"downloadLimitEnabled"`
	DownloadLimitBytes        int64     `json:"downloadLimitBytes"`
	InstalledProgramsIncluded bool      `json:"installedProgramsIncluded"`
	Entries                   []Entry   `json:"entries"`
}

// Build assembles a manifest from the catalog entries included in a backup.
// Pure: no clock or filesystem access beyond what the caller passed in.
func Build(createdAt time.Time, username, mode string, limitBytes int64, programsIncluded bool, entries []catalog.Entry) *Manifest {
	m := &Manifest{
		CreatedAt:                 createdAt,
		OriginalUsername:          username,
		BackupMode:                mode,
		DownloadLimitEnabled:      limitBytes > 0,
		DownloadLimitBytes:        limitBytes,
		InstalledProgramsIncluded: programsIncluded,
		Entries:                   make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		m.Entries = append(m.Entries, Entry{
			OriginalPath:       e.SourcePath,
			Kind:               string(e.Kind),
			RelativeBackupPath: e.RelBackupPath,
		})
	}
	return m
}

// FileName returns the manifest file name for the given mode. Folder-mode
// backups timestamp the name so a manifest is recognizable even when the
// backup directory has been renamed; inside an archive the name is fixed.
func FileName(mode string, createdAt time.Time) string {
	if mode == ModeFolder {
		return FilePrefix + "_" + createdAt.Format("2006-01-02_15-04-05") + ".json"
	}
	return ArchiveFileName
}

// IsManifestName reports whether name (a bare file name, no directory)
// looks like a manifest file.
func IsManifestName(name string) bool {
	return strings.HasPrefix(name, FilePrefix) && strings.EqualFold(filepath.Ext(name), ".json")
}

// Write persists the manifest next to the backup contents. The write is
// atomic so a crash never leaves a half-written manifest that would later
// poison a restore.
func (m *Manifest) Write(path string) error {
	if err := fileutil.AtomicWriteJSON(path, m); err != nil {
		return errors.Wrap(err, "writing backup metadata")
	}
	return nil
}

// Parse decodes and validates manifest JSON. Any decode or validation
// failure is wrapped in ErrManifestParse so callers can branch on it with
// errors.Is and fall back to heuristic restore.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(ErrManifestParse, "decoding: %v", err)
	}
	if err := m.validate(); err != nil {
		return nil, errors.Wrapf(ErrManifestParse, "%v", err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	switch m.BackupMode {
	case ModeCompressed, ModeFolder:
	default:
		return errors.Newf("unknown backup mode %q", m.BackupMode)
	}
	if m.OriginalUsername == "" {
		return errors.New("missing original username")
	}
	seen := make(map[string]bool, len(m.Entries))
	for i, e := range m.Entries {
		if e.RelativeBackupPath == "" {
			return errors.Newf("entry %d: missing relative backup path", i)
		}
		rel := strings.ToLower(e.RelativeBackupPath)
		if seen[rel] {
			return errors.Newf("entry %d: duplicate relative backup path %q", i, e.RelativeBackupPath)
		}
		seen[rel] = true
	}
	return nil
}
