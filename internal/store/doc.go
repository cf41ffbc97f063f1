// Package store persists enrolled signature templates.
//
// A template is a features.DescriptorSet saved under a key (one key per
// identity). Two implementations of Store are provided:
//
//   - MemoryStore: process-local, for tests and server sessions without disk.
//   - FileStore: one "<key>.sigt" file per template, written atomically.
//
// Re-enrolling a key replaces its template. Empty or inconsistent sets are
// never stored.
package store
