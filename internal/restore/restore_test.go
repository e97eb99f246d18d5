package restore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitch-codes/winback/internal/archive"
	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/logging"
	"github.com/glitch-codes/winback/internal/manifest"
)

// fixture is a folder backup taken by "alice" plus a machine whose current
// user is "bob".
type fixture struct {
	backupDir string
	usersRoot string
	cat       *catalog.Catalog
	planner   *Planner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backupDir: t.TempDir(),
		usersRoot: t.TempDir(),
	}
	f.cat = catalog.New(catalog.WithUsersRoot(f.usersRoot))
	f.planner = &Planner{
		Catalog:  f.cat,
		Username: "bob",
		Logger:   logging.ForTest(t),
	}
	return f
}

// addBackupFile writes one file into the backup tree, rel forward-slash.
func (f *fixture) addBackupFile(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(f.backupDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func (f *fixture) writeManifest(t *testing.T, entries []catalog.Entry) {
	t.Helper()
	m := manifest.Build(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		"alice", manifest.ModeFolder, 0, false, entries)
	name := manifest.FileName(manifest.ModeFolder, m.CreatedAt)
	require.NoError(t, m.Write(filepath.Join(f.backupDir, name)))
}

func (f *fixture) open(t *testing.T) Source {
	t.Helper()
	src, err := Open(f.backupDir)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestPlan_MetadataKnownKindMigratesUsername(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/notes.txt", "hello")
	f.writeManifest(t, []catalog.Entry{{
		Kind:          catalog.KindDesktop,
		Name:          "Desktop",
		SourcePath:    filepath.Join(f.usersRoot, "alice", "Desktop"),
		RelBackupPath: "alice/Desktop",
	}})

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	assert.Equal(t, ModeMetadata, plan.Mode)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, f.cat.Resolve(catalog.KindDesktop, "bob"), plan.Items[0].DestPath)
}

func TestPlan_MetadataCustomUnderProfileSubstituted(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "Work/todo.txt", "x")
	f.writeManifest(t, []catalog.Entry{{
		Kind:          catalog.KindCustom,
		Name:          "Work",
		SourcePath:    filepath.Join(f.usersRoot, "alice", "Work"),
		RelBackupPath: "Work",
	}})

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.Equal(t, filepath.Join(f.usersRoot, "bob", "Work"), plan.Items[0].DestPath)
}

func TestPlan_MetadataCustomOutsideProfileVerbatim(t *testing.T) {
	f := newFixture(t)
	original := filepath.Join(t.TempDir(), "Projects")
	f.addBackupFile(t, "Projects/readme.md", "x")
	f.writeManifest(t, []catalog.Entry{{
		Kind:          catalog.KindCustom,
		Name:          "Projects",
		SourcePath:    original,
		RelBackupPath: "Projects",
	}})

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.Equal(t, original, plan.Items[0].DestPath)
}

func TestPlan_MalformedManifestDowngradesToHeuristic(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "Desktop/notes.txt", "hello")
	f.addBackupFile(t, "Backup_Metadata.json", `{"backupMode":"tarball"}`)

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	assert.Equal(t, ModeHeuristic, plan.Mode)
	assert.Nil(t, plan.Manifest)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, f.cat.Resolve(catalog.KindDesktop, "bob"), plan.Items[0].DestPath)
}

func TestPlan_HeuristicWrapperDir(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/notes.txt", "hello")
	f.addBackupFile(t, "alice/Stuff/misc.dat", "m")
	f.addBackupFile(t, "Installed_Programs.txt", "7-Zip\n")

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	assert.Equal(t, ModeHeuristic, plan.Mode)
	require.Len(t, plan.Items, 2)

	byName := make(map[string]Item)
	for _, it := range plan.Items {
		byName[it.Name] = it
	}
	assert.Equal(t, f.cat.Resolve(catalog.KindDesktop, "bob"), byName["Desktop"].DestPath)
	assert.Equal(t, filepath.Join(f.usersRoot, "bob", "Stuff"), byName["Stuff"].DestPath)
}

func TestPlan_HeuristicCustomFolderUnderProfile(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "Games/save.dat", "g")

	plan, err := f.planner.Plan(f.open(t))
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.Equal(t, catalog.KindCustom, plan.Items[0].Kind)
	assert.Equal(t, filepath.Join(f.usersRoot, "bob", "Games"), plan.Items[0].DestPath)
}

func TestExecute_RestoresFiles(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/notes.txt", "hello")
	f.addBackupFile(t, "alice/Desktop/deep/more.txt", "world")
	f.writeManifest(t, []catalog.Entry{{
		Kind:          catalog.KindDesktop,
		Name:          "Desktop",
		SourcePath:    filepath.Join(f.usersRoot, "alice", "Desktop"),
		RelBackupPath: "alice/Desktop",
	}})

	src := f.open(t)
	plan, err := f.planner.Plan(src)
	require.NoError(t, err)

	res, err := Execute(src, plan, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ItemsRestored)
	assert.Equal(t, int64(2), res.FilesRestored)
	assert.False(t, res.Canceled)

	got, err := os.ReadFile(filepath.Join(f.usersRoot, "bob", "Desktop", "deep", "more.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestExecute_SkipsItemsMissingFromBackup(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/notes.txt", "hello")
	f.writeManifest(t, []catalog.Entry{
		{
			Kind:          catalog.KindDesktop,
			SourcePath:    filepath.Join(f.usersRoot, "alice", "Desktop"),
			RelBackupPath: "alice/Desktop",
		},
		{
			Kind:          catalog.KindDocuments,
			SourcePath:    filepath.Join(f.usersRoot, "alice", "Documents"),
			RelBackupPath: "alice/Documents",
		},
	})

	src := f.open(t)
	plan, err := f.planner.Plan(src)
	require.NoError(t, err)

	res, err := Execute(src, plan, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ItemsRestored)
	assert.Equal(t, []string{"Documents"}, res.SkippedItems)
}

func TestExecute_Cancellation(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/a.txt", "a")
	f.addBackupFile(t, "alice/Documents/b.txt", "b")
	f.writeManifest(t, []catalog.Entry{
		{Kind: catalog.KindDesktop, RelBackupPath: "alice/Desktop",
			SourcePath: filepath.Join(f.usersRoot, "alice", "Desktop")},
		{Kind: catalog.KindDocuments, RelBackupPath: "alice/Documents",
			SourcePath: filepath.Join(f.usersRoot, "alice", "Documents")},
	})

	src := f.open(t)
	plan, err := f.planner.Plan(src)
	require.NoError(t, err)

	run := engine.NewRun()
	run.Cancel()

	res, err := Execute(src, plan, nil, run)
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.Zero(t, res.ItemsRestored)
}

// zipFixture archives the folder fixture and reopens it as a compressed
// source, exercising the same plan/execute paths through the zip reader.
func TestZipSource_PlanAndExecute(t *testing.T) {
	f := newFixture(t)
	f.addBackupFile(t, "alice/Desktop/notes.txt", "hello")
	f.addBackupFile(t, "Work/todo.txt", "todo")

	m := manifest.Build(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		"alice", manifest.ModeCompressed, 0, false, []catalog.Entry{
			{Kind: catalog.KindDesktop, RelBackupPath: "alice/Desktop",
				SourcePath: filepath.Join(f.usersRoot, "alice", "Desktop")},
			{Kind: catalog.KindCustom, Name: "Work", RelBackupPath: "Work",
				SourcePath: filepath.Join(f.usersRoot, "alice", "Work")},
		})
	require.NoError(t, m.Write(filepath.Join(f.backupDir, manifest.ArchiveFileName)))

	zipPath := filepath.Join(t.TempDir(), "Backup_2026-03-14_09-26-53.zip")
	require.NoError(t, archive.Create(f.backupDir, zipPath))

	src, err := Open(zipPath)
	require.NoError(t, err)
	defer src.Close()
	assert.True(t, src.Compressed())

	plan, err := f.planner.Plan(src)
	require.NoError(t, err)
	assert.Equal(t, ModeMetadata, plan.Mode)
	require.Len(t, plan.Items, 2)

	res, err := Execute(src, plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsRestored)
	assert.Empty(t, res.Errors)

	got, err := os.ReadFile(filepath.Join(f.usersRoot, "bob", "Desktop", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = os.ReadFile(filepath.Join(f.usersRoot, "bob", "Work", "todo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "todo", string(got))
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
