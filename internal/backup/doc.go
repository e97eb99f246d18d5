// Package backup orchestrates one backup run end to end: the selected
// catalog entries are copied into a timestamped staging tree, the
// installed-programs listing and metadata manifest are written at its root,
// the restore helper is embedded for folder backups, and the tree is
// optionally archived into a single zip.
//
// Ordering matters at the edges. The free-space check runs before anything
// touches disk, so an undersized destination aborts cleanly. Archiving runs
// last, after every file is already staged, so an archive failure still
// leaves the user with a complete uncompressed backup.
package backup
