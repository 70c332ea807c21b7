package storage

import (
	"context"
	"log/slog"
	"time"

	cachedresource "github.com/italijancic-th/cached-resource"
)

var _ cachedresource.Backend = (*SilentBackend)(nil)

// SilentBackend is a decorator for a cachedresource.Backend that
// silently handles errors during operations. Instead of propagating an
// error, it reports the error to Logger and degrades the operation to a
// cache miss (Read) or a no-op (Write, Delete).
type SilentBackend struct {
	// Backend is the underlying backend that this decorator wraps.
	Backend cachedresource.Backend

	// Logger receives the swallowed errors.
	// If nil, errors are discarded.
	Logger *slog.Logger
}

// Read retrieves the value associated with the given key from the
// underlying backend. If the backend fails, the error is reported to
// Logger and the method returns a miss.
func (s *SilentBackend) Read(ctx context.Context, key string) (any, bool, error) {
	value, ok, err := s.Backend.Read(ctx, key)
	if err != nil {
		s.report(ctx, ErrRead, key, err)
		return nil, false, nil
	}
	return value, ok, nil
}

// Write stores the given key-value pair in the underlying backend with
// an expiration time. If the backend fails, the error is reported to
// Logger. The method itself always returns nil.
func (s *SilentBackend) Write(ctx context.Context, key string, value any, expiresIn time.Duration) error {
	if err := s.Backend.Write(ctx, key, value, expiresIn); err != nil {
		s.report(ctx, ErrWrite, key, err)
	}
	return nil
}

// Delete removes the entry stored under the given key from the
// underlying backend. If the backend fails, the error is reported to
// Logger. The method itself always returns nil.
func (s *SilentBackend) Delete(ctx context.Context, key string) error {
	if err := s.Backend.Delete(ctx, key); err != nil {
		s.report(ctx, ErrDelete, key, err)
	}
	return nil
}

func (s *SilentBackend) report(ctx context.Context, op error, key string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.ErrorContext(ctx, op.Error(), slog.String("key", key), slog.Any("error", err))
}

var _ cachedresource.Backend = (*FuncBackend)(nil)

// FuncBackend is a cachedresource.Backend implementation that uses
// functions to perform the backend operations.
type FuncBackend struct {
	// ReadFunc retrieves a value by its key.
	// It returns false if the key is missing or expired.
	ReadFunc func(ctx context.Context, key string) (any, bool, error)

	// WriteFunc stores a value with the given key and expiration time.
	// If the key already exists, it should overwrite the existing entry.
	WriteFunc func(ctx context.Context, key string, value any, expiresIn time.Duration) error

	// DeleteFunc removes the entry stored under the given key.
	DeleteFunc func(ctx context.Context, key string) error
}

// Read calls the ReadFunc function to retrieve the value associated with the given key.
func (s *FuncBackend) Read(ctx context.Context, key string) (any, bool, error) {
	return s.ReadFunc(ctx, key)
}

// Write calls the WriteFunc function to store the given key-value pair.
func (s *FuncBackend) Write(ctx context.Context, key string, value any, expiresIn time.Duration) error {
	return s.WriteFunc(ctx, key, value, expiresIn)
}

// Delete calls the DeleteFunc function to remove the entry stored under the given key.
func (s *FuncBackend) Delete(ctx context.Context, key string) error {
	return s.DeleteFunc(ctx, key)
}
