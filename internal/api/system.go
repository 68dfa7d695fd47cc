package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
	"github.com/patrickmn/go-cache"
	"github.com/shirou/gopsutil/v3/mem"
)

const systemInfoKey = "system"

// SystemInfo describes the host the pipeline runs on.
type SystemInfo struct {
	OS            string   `json:"os"`
	Architecture  string   `json:"architecture"`
	GoVersion     string   `json:"go_version"`
	CPUBrand      string   `json:"cpu_brand"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	CPUFeatures   []string `json:"cpu_features"`
	MemoryTotal   uint64   `json:"memory_total"`
	MemoryFree    uint64   `json:"memory_available"`
	MemoryHuman   string   `json:"memory_human"`
	PoolMemory    uint64   `json:"pool_memory"`
	PoolHuman     string   `json:"pool_memory_human"`
	Goroutines    int      `json:"goroutines"`
	Uptime        string   `json:"uptime"`
}

// virtualMemory is swapped in tests.
var virtualMemory = mem.VirtualMemory

// GetSystemInfo handles GET /api/v1/system. Host readings are cached for a
// few seconds.
func (c *Controller) GetSystemInfo(ctx echo.Context) error {
	if v, ok := c.sysCache.Get(systemInfoKey); ok {
		info := v.(SystemInfo)
		info.Uptime = time.Since(c.startTime).Round(time.Second).String()
		return ctx.JSON(http.StatusOK, info)
	}

	vm, err := virtualMemory()
	if err != nil {
		return c.HandleError(ctx, err, "failed to get memory information", http.StatusInternalServerError)
	}

	poolMemory := uint64(c.pool.Capacity()) * uint64(c.pool.BufferSize())
	info := SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		GoVersion:     runtime.Version(),
		CPUBrand:      cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		CPUFeatures:   cpuid.CPU.FeatureSet(),
		MemoryTotal:   vm.Total,
		MemoryFree:    vm.Available,
		MemoryHuman:   bytes.Format(int64(vm.Available)) + " / " + bytes.Format(int64(vm.Total)),
		PoolMemory:    poolMemory,
		PoolHuman:     bytes.Format(int64(poolMemory)),
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        time.Since(c.startTime).Round(time.Second).String(),
	}
	c.sysCache.Set(systemInfoKey, info, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, info)
}
