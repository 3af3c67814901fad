// Package bufpool provides object pooling to reduce allocation pressure on
// hot paths that allocate and discard a function-local scratch buffer per
// call: shard encoding in pkg/persist (byte buffers) and adjacency
// accumulation in pkg/graph (int slices). A pooled value is only safe to
// reuse once the caller that borrowed it can prove the value never
// escapes past the Put; callers that return a slice to their own caller
// (pkg/paths' per-path step list, for example) must not pool it.
package bufpool

import "sync"

// PoolConfig configures pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active.
	Enabled bool
	// MaxSize limits the capacity of an object this package will return
	// to its pool; oversized scratch space is simply dropped rather than
	// pooled, so one unusually large call can't pin a huge buffer forever.
	MaxSize int
}

var globalConfig = PoolConfig{
	Enabled: true,
	MaxSize: 1 << 20, // 1 MiB
}

// Configure sets global pool configuration. Call early during
// initialization; pools already in use pick up MaxSize on their next Put.
func Configure(config PoolConfig) {
	globalConfig = config
}

// IsEnabled returns whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

var byteBufferPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 1024)
	},
}

// GetByteBuffer returns a zero-length byte buffer from the pool.
func GetByteBuffer() []byte {
	if !globalConfig.Enabled {
		return make([]byte, 0, 1024)
	}
	return byteBufferPool.Get().([]byte)[:0]
}

// PutByteBuffer returns buf to the pool.
func PutByteBuffer(buf []byte) {
	if !globalConfig.Enabled || cap(buf) > globalConfig.MaxSize {
		return
	}
	byteBufferPool.Put(buf[:0])
}

var intSlicePool = sync.Pool{
	New: func() any {
		return make([]int, 0, 32)
	},
}

// GetIntSlice returns a zero-length int slice from the pool, sized for
// accumulating the relation ids of one node's edges (pkg/graph's
// GetNodeEdges).
func GetIntSlice() []int {
	if !globalConfig.Enabled {
		return make([]int, 0, 32)
	}
	return intSlicePool.Get().([]int)[:0]
}

// PutIntSlice returns s to the pool.
func PutIntSlice(s []int) {
	if !globalConfig.Enabled || cap(s) > globalConfig.MaxSize {
		return
	}
	intSlicePool.Put(s[:0])
}
