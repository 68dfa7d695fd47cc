package conf

import (
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrlab/corrbuf/internal/errors"
)

func withHostMemory(t *testing.T, total, available uint64) {
	t.Helper()
	orig := virtualMemory
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: total, Available: available}, nil
	}
	t.Cleanup(func() { virtualMemory = orig })
}

func TestCheckMemoryBudget(t *testing.T) {
	const gib = 1 << 30

	// 6 buffers of 32 + 8*1Mi bytes is just over 48 MiB.
	pool := PoolSettings{Antennas: 3, Channels: 1, Beams: 1, Multiplier: 6, SampleCount: 1 << 20, MaxMemoryPercent: 25}

	t.Run("fits", func(t *testing.T) {
		withHostMemory(t, 4*gib, 2*gib)
		b, err := CheckMemoryBudget(&pool)
		require.NoError(t, err)
		assert.Equal(t, pool.MemoryFootprint(), b.Footprint)
		assert.Equal(t, uint64(gib), b.Limit)
		assert.InDelta(t, 1.17, b.Percent, 0.01)
	})

	t.Run("over limit", func(t *testing.T) {
		withHostMemory(t, 128<<20, 128<<20)
		b, err := CheckMemoryBudget(&pool)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryResource))
		assert.Contains(t, err.Error(), "limit is 32.00MB")
		assert.Equal(t, pool.MemoryFootprint(), b.Footprint)
	})

	t.Run("not available", func(t *testing.T) {
		withHostMemory(t, 4*gib, 16<<20)
		_, err := CheckMemoryBudget(&pool)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available")
	})
}
