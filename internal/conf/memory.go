package conf

import (
	"github.com/labstack/gommon/bytes"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/corrlab/corrbuf/internal/errors"
)

// MemoryBudget describes how the pool footprint relates to host memory.
type MemoryBudget struct {
	Footprint uint64  `json:"footprint_bytes"`
	Total     uint64  `json:"total_bytes"`
	Available uint64  `json:"available_bytes"`
	Limit     uint64  `json:"limit_bytes"`
	Percent   float64 `json:"percent_of_total"`
}

// virtualMemory is swapped in tests.
var virtualMemory = mem.VirtualMemory

// CheckMemoryBudget compares the pool footprint with MaxMemoryPercent of
// total host memory and with currently available memory. The budget is
// returned even when the check fails.
func CheckMemoryBudget(p *PoolSettings) (MemoryBudget, error) {
	vm, err := virtualMemory()
	if err != nil {
		return MemoryBudget{}, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "read_host_memory").
			Build()
	}

	b := MemoryBudget{
		Footprint: p.MemoryFootprint(),
		Total:     vm.Total,
		Available: vm.Available,
		Limit:     uint64(float64(vm.Total) * p.MaxMemoryPercent / 100),
	}
	if vm.Total > 0 {
		b.Percent = float64(b.Footprint) / float64(vm.Total) * 100
	}

	switch {
	case b.Footprint > b.Limit:
		return b, errors.Newf("buffer pool needs %s, limit is %s (%.0f%% of %s)",
			bytes.Format(int64(b.Footprint)), bytes.Format(int64(b.Limit)),
			p.MaxMemoryPercent, bytes.Format(int64(b.Total))).
			Category(errors.CategoryResource).
			Context("operation", "check_memory_budget").
			Context("footprint_bytes", b.Footprint).
			Context("limit_bytes", b.Limit).
			Build()
	case b.Footprint > b.Available:
		return b, errors.Newf("buffer pool needs %s, only %s available",
			bytes.Format(int64(b.Footprint)), bytes.Format(int64(b.Available))).
			Category(errors.CategoryResource).
			Context("operation", "check_memory_budget").
			Context("footprint_bytes", b.Footprint).
			Context("available_bytes", b.Available).
			Build()
	}
	return b, nil
}
