// Package core holds the dataset service behind the API, dashboard and CLI.
//
// A [Service] owns the current [Snapshot]: the loaded table, its detected or
// overridden column mapping and where it came from. Snapshots are immutable
// and swapped atomically, so request handlers read a consistent table and
// mapping without locking while an upload is being parsed. Loads themselves
// are admitted one at a time by a [LoadLimiter].
//
// Filtering, pagination, projection and CSV export are thin wrappers over
// package bins; this package adds the no-data error, history recording and
// the mapping from technical errors to coded user messages ([MapError]).
package core
