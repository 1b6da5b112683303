package repository

import "errors"

// Sentinel errors for this package, checked with errors.Is.
var (
	ErrOpenState    = errors.New("open state file failed")
	ErrCorruptState = errors.New("state file is corrupt")
	ErrPersistState = errors.New("persist state failed")
	ErrNotFound     = errors.New("not found")
)
