// Package diagnostics collects host information and builds support bundles
// for troubleshooting fieldscan deployments.
package diagnostics

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo describes the host a fieldscan node runs on. All fields are
// best-effort: collection failures leave the affected fields zeroed so a
// support bundle can still be produced on unusual systems.
type SystemInfo struct {
	Hostname        string   `yaml:"hostname"`
	OS              string   `yaml:"os"`
	Platform        string   `yaml:"platform"`
	PlatformVersion string   `yaml:"platform_version"`
	KernelVersion   string   `yaml:"kernel_version"`
	Architecture    string   `yaml:"architecture"`
	UptimeSeconds   uint64   `yaml:"uptime_seconds"`
	GoVersion       string   `yaml:"go_version"`
	NumCPU          int      `yaml:"num_cpu"`
	CPUModel        string   `yaml:"cpu_model"`
	PhysicalCores   int      `yaml:"physical_cores"`
	LogicalCores    int      `yaml:"logical_cores"`
	CPUFeatures     []string `yaml:"cpu_features,omitempty"`
	MemoryTotal     uint64   `yaml:"memory_total_bytes"`
	MemoryAvailable uint64   `yaml:"memory_available_bytes"`
	MemoryUsedPct   float64  `yaml:"memory_used_percent"`
	Disk            DiskInfo `yaml:"disk"`
	CollectedAt     string   `yaml:"collected_at"`
}

// DiskInfo describes usage of the filesystem holding the output directory.
type DiskInfo struct {
	Path        string  `yaml:"path"`
	TotalBytes  uint64  `yaml:"total_bytes"`
	FreeBytes   uint64  `yaml:"free_bytes"`
	UsedPercent float64 `yaml:"used_percent"`
}

// CollectSystemInfo gathers host details relevant to analysis throughput:
// OS and kernel, CPU model and feature flags, memory, and disk usage of
// outputPath where the result CSVs land.
func CollectSystemInfo(outputPath string) SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		CollectedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform
		info.PlatformVersion = hostInfo.PlatformVersion
		info.KernelVersion = hostInfo.KernelVersion
		info.UptimeSeconds = hostInfo.Uptime
	} else {
		GetLogger().Debug("host info collection failed", "error", err)
		if hostname, herr := os.Hostname(); herr == nil {
			info.Hostname = hostname
		}
	}

	info.CPUModel = cpuid.CPU.BrandName
	info.PhysicalCores = cpuid.CPU.PhysicalCores
	info.LogicalCores = cpuid.CPU.LogicalCores
	info.CPUFeatures = featureFlags()

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryAvailable = vm.Available
		info.MemoryUsedPct = vm.UsedPercent
	} else {
		GetLogger().Debug("memory info collection failed", "error", err)
	}

	if outputPath != "" {
		if usage, err := disk.Usage(outputPath); err == nil {
			info.Disk = DiskInfo{
				Path:        outputPath,
				TotalBytes:  usage.Total,
				FreeBytes:   usage.Free,
				UsedPercent: usage.UsedPercent,
			}
		} else {
			GetLogger().Debug("disk usage collection failed", "path", outputPath, "error", err)
		}
	}

	return info
}

// featureFlags returns the CPU feature set sorted for stable output.
func featureFlags() []string {
	flags := cpuid.CPU.FeatureSet()
	sort.Strings(flags)
	return flags
}
