package keyhash

import (
	"hash"
	"hash/fnv"
	"io"
	"sync"
)

// hashPool is a pool for 64-bit FNV-1a hash states.
var hashPool = sync.Pool{
	New: func() any {
		return fnv.New64a()
	},
}

// Sum computes a 64-bit FNV-1a hash of the given cache key.
// It reuses pooled hash states to avoid allocating on every call.
func Sum(key string) int {
	h := hashPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		hashPool.Put(h)
	}()

	_, _ = io.WriteString(h, key)
	return int(h.Sum64())
}
