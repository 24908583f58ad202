// Package state holds the last observed job state for each printer.
//
// The Store is a plain in-memory map guarded by a RWMutex. It is owned by the
// reconcile engine, which serializes read-decide-write sequences per printer;
// the store itself only guarantees that individual Get/Set calls are atomic.
// Records are overwritten, never merged, and are never evicted for the life of
// the process.
package state
