package restore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/manifest"
)

// Mode says how destinations in a plan were derived.
type Mode string

const (
	// ModeMetadata means the backup's manifest was read and destinations
	// come from it, with username migration applied.
	ModeMetadata Mode = "metadata"

	// ModeHeuristic means no usable manifest was found and destinations
	// were inferred from folder names. Everything lands under the current
	// user's profile.
	ModeHeuristic Mode = "heuristic"
)

// Item is one folder to restore: where it sits in the backup and where it
// goes on disk.
type Item struct {
	// Name is the folder's display name.
	Name string

	// Kind is the folder kind the planner assigned.
	Kind catalog.Kind

	// BackupPath locates the folder inside the backup, forward-slash
	// separated.
	BackupPath string

	// DestPath is the absolute destination directory.
	DestPath string

	// Note carries a planner warning for this item, if any.
	Note string
}

// Plan is the full restore decision for one backup: what to copy where, and
// how the decision was reached.
type Plan struct {
	Mode     Mode
	Manifest *manifest.Manifest
	Items    []Item
	Warnings []string
}

// Planner derives restore plans against a particular machine state.
type Planner struct {
	Catalog  *catalog.Catalog
	Username string
	Logger   *slog.Logger
}

// Plan inspects the backup and decides where every folder should go.
//
// When the manifest parses, known folder kinds are re-resolved under the
// current username and custom folders get their recorded absolute path with
// the old username substituted where it appears. A missing manifest, or one
// that fails to parse, downgrades the whole plan to name-based heuristics
// with a warning; it is never fatal, because the backup contents themselves
// are fine.
func (p *Planner) Plan(src Source) (*Plan, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, name, found, err := src.FindManifest()
	if found && err == nil {
		m, perr := manifest.Parse(data)
		if perr == nil {
			logger.Info("metadata found, using intelligent restore",
				"manifest", name,
				"originalUser", m.OriginalUsername,
				"currentUser", p.Username,
				"mode", m.BackupMode)
			return p.planFromManifest(src, m)
		}
		logger.Warn("metadata unreadable, falling back to basic restore", "manifest", name, "error", perr)
	} else if found {
		logger.Warn("metadata unreadable, falling back to basic restore", "manifest", name, "error", err)
	} else {
		logger.Warn("no metadata file found, using basic restore")
	}

	return p.planHeuristic(src)
}

func (p *Planner) planFromManifest(src Source, m *manifest.Manifest) (*Plan, error) {
	plan := &Plan{Mode: ModeMetadata, Manifest: m}

	for _, e := range m.Entries {
		item := Item{
			Name:       displayName(e.RelativeBackupPath),
			Kind:       catalog.Kind(e.Kind),
			BackupPath: e.RelativeBackupPath,
		}

		if item.Kind.Known() {
			item.DestPath = p.Catalog.Resolve(item.Kind, p.Username)
		} else {
			dest, substituted := p.Catalog.SubstituteUser(e.OriginalPath, m.OriginalUsername, p.Username)
			item.DestPath = dest
			if !substituted && !parentExists(dest) {
				item.Note = fmt.Sprintf("original location %s no longer exists, parent will be created", e.OriginalPath)
				plan.Warnings = append(plan.Warnings, item.Note)
			}
		}

		if !src.HasDir(e.RelativeBackupPath) {
			item.Note = "not found in backup"
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s listed in metadata but missing from backup", item.Name))
		}

		plan.Items = append(plan.Items, item)
	}

	return plan, nil
}

// planHeuristic maps backup folders by name alone. Top-level folders named
// after a known kind go to that kind's location; a wrapper folder whose
// children include known kind names is treated as the original user's
// profile folder and descended into; anything else lands under the current
// user's profile by basename.
func (p *Planner) planHeuristic(src Source) (*Plan, error) {
	top, err := src.TopLevel()
	if err != nil {
		return nil, errors.Wrap(err, "listing backup contents")
	}

	plan := &Plan{Mode: ModeHeuristic}
	for _, te := range top {
		if !te.Dir || skipHeuristicName(te.Name) {
			continue
		}

		kind := catalog.KindFromName(te.Name)
		if kind.Known() {
			plan.Items = append(plan.Items, Item{
				Name:       te.Name,
				Kind:       kind,
				BackupPath: te.Name,
				DestPath:   p.Catalog.Resolve(kind, p.Username),
			})
			continue
		}

		if wrapped := p.wrapperItems(src, te.Name); wrapped != nil {
			plan.Items = append(plan.Items, wrapped...)
			continue
		}

		plan.Items = append(plan.Items, Item{
			Name:       te.Name,
			Kind:       catalog.KindCustom,
			BackupPath: te.Name,
			DestPath:   filepath.Join(p.Catalog.ProfileDir(p.Username), te.Name),
		})
	}

	return plan, nil
}

// wrapperItems checks whether the top-level folder wraps known profile
// folders (the shape a folder backup has: one directory per source user)
// and, if so, returns items for its children. Returns nil when the folder
// does not look like a wrapper.
func (p *Planner) wrapperItems(src Source, wrapper string) []Item {
	children := childDirs(src, wrapper)

	hasKnown := false
	for _, c := range children {
		if catalog.KindFromName(c).Known() {
			hasKnown = true
			break
		}
	}
	if !hasKnown && !strings.HasPrefix(wrapper, "Backup_") {
		return nil
	}

	var items []Item
	for _, c := range children {
		kind := catalog.KindFromName(c)
		dest := p.Catalog.Resolve(kind, p.Username)
		if !kind.Known() {
			dest = filepath.Join(p.Catalog.ProfileDir(p.Username), c)
		}
		items = append(items, Item{
			Name:       c,
			Kind:       kind,
			BackupPath: wrapper + "/" + c,
			DestPath:   dest,
		})
	}
	return items
}

func childDirs(src Source, rel string) []string {
	switch s := src.(type) {
	case *dirSource:
		dirEntries, err := os.ReadDir(s.abs(rel))
		if err != nil {
			return nil
		}
		var out []string
		for _, de := range dirEntries {
			if de.IsDir() {
				out = append(out, de.Name())
			}
		}
		return out
	case *zipSource:
		prefix := rel + "/"
		seen := make(map[string]bool)
		var out []string
		for _, n := range s.names {
			if !strings.HasPrefix(n, prefix) {
				continue
			}
			child, _, nested := strings.Cut(strings.TrimPrefix(n, prefix), "/")
			if child == "" || seen[child] {
				continue
			}
			if !nested && !s.files[n].FileInfo().IsDir() {
				continue
			}
			seen[child] = true
			out = append(out, child)
		}
		return out
	default:
		return nil
	}
}

// skipHeuristicName filters backup bookkeeping out of heuristic plans:
// the programs listing, metadata files, and anything that is not profile
// data.
func skipHeuristicName(name string) bool {
	if strings.EqualFold(name, "Installed_Programs.txt") {
		return true
	}
	return manifest.IsManifestName(name)
}

func displayName(relBackupPath string) string {
	if i := strings.LastIndexByte(relBackupPath, '/'); i >= 0 {
		return relBackupPath[i+1:]
	}
	return relBackupPath
}

func parentExists(p string) bool {
	parent := filepath.Dir(filepath.FromSlash(p))
	_, err := os.Stat(parent)
	return err == nil
}
