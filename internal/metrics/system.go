// Package metrics reports host resource usage for the dashboard.
package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostMetrics represents current host resource usage.
type HostMetrics struct {
	Hostname  string        `json:"hostname"`
	Platform  string        `json:"platform"`
	CPU       CPUMetrics    `json:"cpu"`
	Memory    MemoryMetrics `json:"memory"`
	Disks     []DiskMetrics `json:"disks"`
	LoadAvg   []float64     `json:"load_avg"` // 1, 5, 15 min
	Uptime    int64         `json:"uptime"`   // seconds
	Timestamp time.Time     `json:"timestamp"`
}

// CPUMetrics represents CPU usage information.
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryMetrics represents memory usage information.
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskMetrics represents usage of the filesystem holding Path.
type DiskMetrics struct {
	Path        string  `json:"path"`
	Filesystem  string  `json:"filesystem"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// RootPath returns the system volume for the current platform.
func RootPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + `\`
	}
	return "/"
}

// GetHostMetrics collects host metrics. The root volume is always reported;
// extra paths (such as backup destinations) are reported when they exist.
func GetHostMetrics(ctx context.Context, paths ...string) (*HostMetrics, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m := &HostMetrics{
		Platform:  runtime.GOOS,
		Timestamp: time.Now(),
	}
	var wg sync.WaitGroup
	var mu sync.Mutex

	// CPU is the slowest, it samples for 200ms.
	wg.Add(1)
	go func() {
		defer wg.Done()
		percent, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
		if err == nil && len(percent) > 0 {
			mu.Lock()
			m.CPU.UsagePercent = percent[0]
			mu.Unlock()
		}
		if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
			mu.Lock()
			m.CPU.Cores = cores
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		vmem, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return
		}
		mu.Lock()
		m.Memory = MemoryMetrics{
			Total:       vmem.Total,
			Used:        vmem.Used,
			Available:   vmem.Available,
			UsedPercent: vmem.UsedPercent,
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		disks := DiskUsage(ctx, append([]string{RootPath()}, paths...)...)
		mu.Lock()
		m.Disks = disks
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if info, err := host.InfoWithContext(ctx); err == nil {
			mu.Lock()
			m.Uptime = int64(info.Uptime)
			m.Hostname = info.Hostname
			mu.Unlock()
		}
		// Not available on Windows.
		if avg, err := load.AvgWithContext(ctx); err == nil {
			mu.Lock()
			m.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
			mu.Unlock()
		}
	}()

	wg.Wait()

	return m, nil
}

// DiskUsage reports usage for each existing path, skipping duplicates.
func DiskUsage(ctx context.Context, paths ...string) []DiskMetrics {
	disks := make([]DiskMetrics, 0, len(paths))
	seen := make(map[string]bool)

	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		if _, err := os.Stat(p); err != nil {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p)
		if err != nil {
			continue
		}
		disks = append(disks, DiskMetrics{
			Path:        p,
			Filesystem:  usage.Fstype,
			Total:       usage.Total,
			Used:        usage.Used,
			Available:   usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}
	return disks
}
