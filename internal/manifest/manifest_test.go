package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/errors"
)

func testEntries() []catalog.Entry {
	return []catalog.Entry{
		{
			Kind:          catalog.KindDesktop,
			Name:          "Desktop",
			SourcePath:    `C:\Users\alice\Desktop`,
			RelBackupPath: "alice/Desktop",
		},
		{
			Kind:          catalog.KindCustom,
			Name:          "Проекты",
			SourcePath:    `D:\Проекты`,
			RelBackupPath: "Проекты",
		},
	}
}

func TestBuild(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	m := Build(createdAt, "alice", ModeFolder, 2<<30, true, testEntries())

	assert.Equal(t, "alice", m.OriginalUsername)
	assert.Equal(t, ModeFolder, m.BackupMode)
	assert.True(t, m.DownloadLimitEnabled)
	assert.Equal(t, int64(2<<30), m.DownloadLimitBytes)
	assert.True(t, m.InstalledProgramsIncluded)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "alice/Desktop", m.Entries[0].RelativeBackupPath)
	assert.Equal(t, "Custom", m.Entries[1].Kind)
}

func TestBuild_NoDownloadLimit(t *testing.T) {
	m := Build(time.Now(), "alice", ModeCompressed, 0, false, nil)
	assert.False(t, m.DownloadLimitEnabled)
	assert.Zero(t, m.DownloadLimitBytes)
}

func TestWriteParse_RoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	m := Build(createdAt, "alice", ModeFolder, 0, false, testEntries())

	path := filepath.Join(t.TempDir(), FileName(ModeFolder, createdAt))
	require.NoError(t, m.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	// Non-ASCII paths must survive the trip intact.
	assert.Equal(t, `D:\Проекты`, got.Entries[1].OriginalPath)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"createdAt": nope`))
	assert.True(t, errors.Is(err, ErrManifestParse))
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "unknown mode",
			json: `{"originalUsername":"alice","backupMode":"tarball","entries":[]}`,
		},
		{
			name: "missing username",
			json: `{"backupMode":"folder","entries":[]}`,
		},
		{
			name: "entry without relative path",
			json: `{"originalUsername":"alice","backupMode":"folder","entries":[{"originalPath":"C:\\x","kind":"Custom"}]}`,
		},
		{
			name: "duplicate relative path",
			json: `{"originalUsername":"alice","backupMode":"folder","entries":[
				{"originalPath":"C:\\a","kind":"Custom","relativeBackupPath":"Stuff"},
				{"originalPath":"D:\\b","kind":"Custom","relativeBackupPath":"stuff"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			assert.True(t, errors.Is(err, ErrManifestParse), "got %v", err)
		})
	}
}

func TestFileName(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t, "Backup_Metadata_2026-03-14_09-26-53.json", FileName(ModeFolder, createdAt))
	assert.Equal(t, "Backup_Metadata.json", FileName(ModeCompressed, createdAt))
}

func TestIsManifestName(t *testing.T) {
	assert.True(t, IsManifestName("Backup_Metadata.json"))
	assert.True(t, IsManifestName("Backup_Metadata_2026-03-14_09-26-53.json"))
	assert.False(t, IsManifestName("Backup_2026-03-14_09-26-53.zip"))
	assert.False(t, IsManifestName("metadata.json"))
}
