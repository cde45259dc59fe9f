package repositories

import "errors"

// ErrNotFound indicates that a requested row does not exist.
var ErrNotFound = errors.New("record not found")
