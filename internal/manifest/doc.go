// Package manifest defines the metadata document written alongside every
// backup and the rules for finding and validating it at restore time.
//
// The document records when the backup was taken, which user it belongs to,
// the backup mode, and one entry per folder with its original path, kind,
// and location inside the backup. A restore that can read the manifest gets
// exact placement with username migration; one that cannot falls back to
// folder-name heuristics, which is why [Parse] reports every failure as
// [ErrManifestParse] rather than distinguishing decode errors from
// validation errors.
package manifest
