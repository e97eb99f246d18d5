package catalog

import (
	"os"
	"os/user"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/glitch-codes/winback/internal/errors"
)

// Kind identifies a standard Windows profile folder, or KindCustom for a
// user-supplied folder outside the profile.
type Kind string

const (
	KindDesktop   Kind = "Desktop"
	KindDocuments Kind = "Documents"
	KindDownloads Kind = "Downloads"
	KindPictures  Kind = "Pictures"
	KindMusic     Kind = "Music"
	KindVideos    Kind = "Videos"
	KindFavorites Kind = "Favorites"
	KindAppData   Kind = "AppData"

	// KindCustom marks folders added explicitly by path.
	KindCustom Kind = "Custom"
)

// KnownKinds returns the standard profile folder kinds in their stable
// display order. Entry ordering everywhere follows this order so that
// progress output is reproducible across runs.
func KnownKinds() []Kind {
	return []Kind{
		KindDesktop,
		KindDocuments,
		KindDownloads,
		KindPictures,
		KindMusic,
		KindVideos,
		KindFavorites,
		KindAppData,
	}
}

// Known reports whether k is one of the standard profile folder kinds.
func (k Kind) Known() bool {
	for _, known := range KnownKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// KindFromName maps a folder name back to a known kind.
// Returns KindCustom if the name matches no standard folder.
func KindFromName(name string) Kind {
	for _, k := range KnownKinds() {
		if strings.EqualFold(name, string(k)) {
			return k
		}
	}
	return KindCustom
}

// Sentinel errors for catalog operations.
var (
	// ErrInvalidPath indicates a custom folder path that does not exist or
	// is not a directory.
	ErrInvalidPath = errors.New("invalid folder path")

	// ErrDuplicateEntry indicates a relative backup path collision between
	// two selected folders.
	ErrDuplicateEntry = errors.New("duplicate backup entry")
)

// Entry is one folder unit selected (or selectable) for backup.
type Entry struct {
	// Kind is the semantic folder kind. KindCustom for arbitrary folders.
	Kind Kind

	// Name is the folder's display name: the kind name for known folders,
	// the directory basename for custom folders.
	Name string

	// SourcePath is the absolute path of the folder on disk.
	SourcePath string

	// Exists reports whether SourcePath existed at discovery time.
	// Missing folders stay listed but are excluded from the default selection.
	Exists bool

	// Selected marks the entry for inclusion in the next backup run.
	Selected bool

	// RelBackupPath is the entry's location inside the backup, always
	// forward-slash separated: "<username>/<name>" for known folders,
	// "<name>" at the backup root for custom folders.
	RelBackupPath string
}

// Catalog locates profile folders for a user and tracks the working set of
// entries for a backup run.
type Catalog struct {
	usersRoot  string
	systemRoot string
	entries    []Entry
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithUsersRoot overrides the directory that holds user profiles
// (normally C:\Users). Tests point this at a temp directory.
func WithUsersRoot(dir string) Option {
	return func(c *Catalog) {
		c.usersRoot = dir
	}
}

// WithSystemRoot overrides the system drive root used by the orphan scan.
func WithSystemRoot(dir string) Option {
	return func(c *Catalog) {
		c.systemRoot = dir
	}
}

// New creates a Catalog with the given options.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		usersRoot:  DefaultUsersRoot(),
		systemRoot: DefaultSystemRoot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultUsersRoot returns the profile container directory for this machine.
// On Windows that is <SystemDrive>\Users; elsewhere it falls back to the
// parent of the current home directory so the tool stays testable.
func DefaultUsersRoot() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(systemDrive(), "Users")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return string(filepath.Separator)
	}
	return filepath.Dir(home)
}

// DefaultSystemRoot returns the system drive root.
func DefaultSystemRoot() string {
	if runtime.GOOS == "windows" {
		return systemDrive() + string(filepath.Separator)
	}
	return string(filepath.Separator)
}

func systemDrive() string {
	if drive := os.Getenv("SystemDrive"); drive != "" {
		return drive
	}
	return "C:"
}

// CurrentUsername returns the login name of the current user, with any
// DOMAIN\ prefix stripped.
func CurrentUsername() string {
	u, err := user.Current()
	if err != nil {
		return os.Getenv("USERNAME")
	}
	name := u.Username
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// UsersRoot returns the configured profile container directory.
func (c *Catalog) UsersRoot() string {
	return c.usersRoot
}

// ProfileDir returns the profile directory for the given username.
func (c *Catalog) ProfileDir(username string) string {
	return filepath.Join(c.usersRoot, username)
}

// Resolve returns the on-disk path of a known folder kind for the given
// username. Both discovery and restore planning go through this function,
// which is what makes username migration transparent: restoring re-resolves
// each kind under the current user instead of trusting recorded paths.
func (c *Catalog) Resolve(kind Kind, username string) string {
	return filepath.Join(c.ProfileDir(username), string(kind))
}

// Discover resolves every known profile folder kind for the given username
// and loads them into the catalog. Folders that do not exist on disk are
// listed but marked non-selectable; discovery itself never fails.
// Previously added custom entries are preserved.
func (c *Catalog) Discover(username string) []Entry {
	var custom []Entry
	for _, e := range c.entries {
		if e.Kind == KindCustom {
			custom = append(custom, e)
		}
	}

	entries := make([]Entry, 0, len(KnownKinds())+len(custom))
	for _, kind := range KnownKinds() {
		src := c.Resolve(kind, username)
		exists := isDir(src)
		entries = append(entries, Entry{
			Kind:          kind,
			Name:          string(kind),
			SourcePath:    src,
			Exists:        exists,
			Selected:      exists,
			RelBackupPath: path.Join(username, string(kind)),
		})
	}
	entries = append(entries, custom...)

	c.entries = entries
	return c.Entries()
}

// AddCustom adds an arbitrary folder to the catalog. The folder is stored at
// the backup root under its basename.
//
// Returns ErrInvalidPath if the path does not exist or is not a directory,
// and ErrDuplicateEntry if the basename collides with an existing entry's
// relative backup path.
func (c *Catalog) AddCustom(dir string) (Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Entry{}, errors.Wrapf(ErrInvalidPath, "%s", dir)
	}

	if !isDir(abs) {
		return Entry{}, errors.Wrapf(ErrInvalidPath, "%s is not an existing directory", dir)
	}

	name := filepath.Base(abs)
	rel := name
	for _, e := range c.entries {
		if strings.EqualFold(e.RelBackupPath, rel) {
			return Entry{}, errors.Wrapf(ErrDuplicateEntry, "relative path %q already in use by %s", rel, e.SourcePath)
		}
	}

	entry := Entry{
		Kind:          KindCustom,
		Name:          name,
		SourcePath:    abs,
		Exists:        true,
		Selected:      true,
		RelBackupPath: rel,
	}
	c.entries = append(c.entries, entry)
	return entry, nil
}

// Entries returns a copy of the catalog's current entries in stable order:
// known kinds first in KnownKinds order, then custom folders in the order
// they were added.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Selected returns the entries currently marked for backup.
func (c *Catalog) Selected() []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Selected && e.Exists {
			out = append(out, e)
		}
	}
	return out
}

// Select narrows the selection to the named folders (kind names or custom
// basenames, case-insensitive). Unknown names are reported as an error;
// entries whose folders are missing on disk stay unselected.
func (c *Catalog) Select(names []string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = false
	}

	for i := range c.entries {
		_, ok := want[strings.ToLower(c.entries[i].Name)]
		if ok {
			want[strings.ToLower(c.entries[i].Name)] = true
		}
		c.entries[i].Selected = ok && c.entries[i].Exists
	}

	var unknown []string
	for n, found := range want {
		if !found {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Newf("unknown folder(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// SubstituteUser rewrites a path recorded under one user's profile so it
// points into another user's profile. It handles paths under this machine's
// users root as well as foreign paths that contain a Users\<name> or
// Users/<name> segment (the manifest records paths from the source machine,
// which may use either separator). The boolean reports whether a
// substitution happened; paths outside any user profile come back verbatim.
func (c *Catalog) SubstituteUser(p, oldUser, newUser string) (string, bool) {
	oldProfile := c.ProfileDir(oldUser)
	if p == oldProfile {
		return c.ProfileDir(newUser), true
	}
	for _, sep := range []byte{filepath.Separator, '\\', '/'} {
		if strings.HasPrefix(p, oldProfile+string(sep)) {
			return c.ProfileDir(newUser) + p[len(oldProfile):], true
		}
	}

	// Foreign-machine path: match a Users/<oldUser> segment in either
	// separator style, requiring a separator (or end of string) after the
	// username so "alice" never matches "alicesmith".
	for _, sep := range []string{`\`, `/`} {
		marker := "Users" + sep + oldUser
		idx := strings.Index(p, marker)
		if idx < 0 {
			continue
		}
		end := idx + len(marker)
		if end < len(p) && p[end] != '\\' && p[end] != '/' {
			continue
		}
		return p[:idx] + "Users" + sep + newUser + p[end:], true
	}

	return p, false
}

// systemFolders are top-level directories on the system drive that belong to
// Windows itself and are never interesting as backup candidates.
var systemFolders = []string{
	"windows",
	"program files",
	"program files (x86)",
	"programdata",
	"users",
	"perflogs",
	"recovery",
	"intel",
	"amd",
	"nvidia",
	"onedrivetemp",
	"msocache",
	"documents and settings",
	"system volume information",
}

// ScanOrphanFolders lists top-level directories under rootDrive that are not
// Windows system directories and not already present in the catalog. This is
// a discovery aid for finding data stashed outside the profile; nothing else
// depends on it.
func (c *Catalog) ScanOrphanFolders(rootDrive string) ([]string, error) {
	if rootDrive == "" {
		rootDrive = c.systemRoot
	}

	dirEntries, err := os.ReadDir(rootDrive)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", rootDrive)
	}

	known := make(map[string]bool, len(c.entries))
	for _, e := range c.entries {
		known[strings.ToLower(filepath.Clean(e.SourcePath))] = true
	}

	var orphans []string
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasPrefix(name, "$") || strings.HasPrefix(name, ".") {
			continue
		}
		if isSystemFolder(name) {
			continue
		}
		full := filepath.Join(rootDrive, name)
		if known[strings.ToLower(filepath.Clean(full))] {
			continue
		}
		orphans = append(orphans, full)
	}

	sort.Strings(orphans)
	return orphans, nil
}

func isSystemFolder(name string) bool {
	lower := strings.ToLower(name)
	for _, sys := range systemFolders {
		if lower == sys {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
