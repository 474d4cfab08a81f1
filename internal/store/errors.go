package store

import "errors"

// ErrPersistence indicates a disk read or write failure.
// Corrupt files are not errors: they are quarantined and reads start empty.
var ErrPersistence = errors.New("store: persistence failure")
