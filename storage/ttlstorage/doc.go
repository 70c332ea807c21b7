// Package ttlstorage provides a cache backend built on the
// jellydator/ttlcache library.
//
// Unlike the built-in in-memory backend, ttlcache actively evicts
// expired entries with a janitor goroutine, which keeps memory bounded
// for long-running processes with many short-lived keys.
package ttlstorage
