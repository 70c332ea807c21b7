// Package storage provides cache backend adapters and utilities for the
// cached-resource library.
//
// This package contains adapters such as SilentBackend, which wraps any
// Backend implementation so that backend failures degrade to cache
// misses, and FuncBackend, which allows building custom backend
// implementations using function callbacks.
//
// This package also defines common error types for backend operations:
// ErrRead, ErrWrite, and ErrDelete.
package storage
