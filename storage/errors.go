package storage

import "errors"

var (
	ErrRead   = errors.New("unable to read entry from cache backend")
	ErrWrite  = errors.New("unable to write entry to cache backend")
	ErrDelete = errors.New("unable to delete entry from cache backend")
)
