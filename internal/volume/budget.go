package volume

import (
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// Budget caps the bytes held by buffers read through a Reader. A nil
// *Budget is unlimited.
//
// Buffers hold their share until VoxelBuffer.Release is called.
type Budget struct {
	sem   *semaphore.Weighted
	limit int64
}

// NewBudget returns a budget of limit bytes, or nil when limit <= 0.
func NewBudget(limit int64) *Budget {
	if limit <= 0 {
		return nil
	}
	return &Budget{sem: semaphore.NewWeighted(limit), limit: limit}
}

// Limit returns the configured byte limit (0 for unlimited).
func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) acquire(n int64) error {
	if b == nil || n == 0 {
		return nil
	}
	if n > b.limit || !b.sem.TryAcquire(n) {
		slog.Warn("Voxel buffer exceeds memory budget", "bytes", n, "limit", b.limit)
		return Allocation("read", "%d bytes exceed the %d byte memory budget", n, b.limit)
	}
	return nil
}

func (b *Budget) release(n int64) {
	if b == nil || n == 0 {
		return
	}
	b.sem.Release(n)
}
