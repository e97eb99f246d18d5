// Package catalog enumerates the Windows profile folders that can be backed
// up and resolves their on-disk locations for a given username.
//
// A [Catalog] holds the working set of [Entry] values for one backup run:
// the standard profile folders discovered for a user plus any custom folders
// added by path. Discovery never fails outright; folders that are missing on
// disk are listed but marked non-selectable.
//
// Path resolution for known folder kinds is centralized in
// [Catalog.Resolve]. The restore planner calls the same function with the
// current username, which is what makes restoring a backup taken under a
// different username work without any path fixups.
//
// The users root (normally C:\Users) is configurable via [WithUsersRoot] so
// tests can operate on temp directories.
package catalog
