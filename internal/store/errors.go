package store

import "fmt"

// CorruptionError reports a button file that existed but could not be used.
// The store has already replaced it with the default page when this is
// returned.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("button config %s is invalid and was reset: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// PersistenceError reports a read or write failure. In-memory state stays
// authoritative; the next successful save recovers.
type PersistenceError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
