package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/VictorChenLi/raspberry-pi-status/command"
)

const unavailable = "N/A"

// Info is the telemetry snapshot returned by /api/system-info. Every field
// degrades to "N/A" independently when its probe fails.
type Info struct {
	CPUTemp     string `json:"cpuTemp"`
	CPUUsage    string `json:"cpuUsage"`
	MemoryUsage string `json:"memoryUsage"`
	DiskSpace   string `json:"diskSpace"`
	Uptime      string `json:"uptime"`
	Hostname    string `json:"hostname"`
	OSVersion   string `json:"osVersion"`
}

// InfoProvider gathers host telemetry from gopsutil, with the Pi firmware
// tool as the preferred temperature source.
type InfoProvider struct {
	runner        command.Runner
	osReleasePath string
}

func NewInfoProvider(runner command.Runner) *InfoProvider {
	return &InfoProvider{
		runner:        runner,
		osReleasePath: "/etc/os-release",
	}
}

// Collect builds a telemetry snapshot. Probe failures never abort the whole
// snapshot.
func (p *InfoProvider) Collect(ctx context.Context) Info {
	info := Info{
		CPUTemp:     p.cpuTemp(ctx),
		CPUUsage:    unavailable,
		MemoryUsage: unavailable,
		DiskSpace:   unavailable,
		Uptime:      unavailable,
		Hostname:    unavailable,
		OSVersion:   p.osVersion(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 250*time.Millisecond, false); err == nil && len(percents) > 0 {
		info.CPUUsage = fmt.Sprintf("%.1f%%", percents[0])
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryUsage = fmt.Sprintf("%.1f%%", vm.UsedPercent)
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		info.DiskSpace = fmt.Sprintf("%.0f%% used", usage.UsedPercent)
	}

	if seconds, err := host.UptimeWithContext(ctx); err == nil {
		info.Uptime = fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	return info
}

// cpuTemp asks the Pi firmware first ("temp=48.3'C"), then falls back to the
// kernel thermal sensors.
func (p *InfoProvider) cpuTemp(ctx context.Context) string {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if out, err := p.runner.Run(probeCtx, "vcgencmd", "measure_temp"); err == nil {
		if temp := strings.TrimPrefix(strings.TrimSpace(string(out)), "temp="); temp != "" {
			return temp
		}
	}

	if sensors, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		for _, sensor := range sensors {
			key := strings.ToLower(sensor.SensorKey)
			if strings.Contains(key, "cpu_thermal") || strings.Contains(key, "cpu-thermal") || strings.Contains(key, "coretemp") {
				return fmt.Sprintf("%.1f'C", sensor.Temperature)
			}
		}
	}
	return unavailable
}

// osVersion reads PRETTY_NAME from os-release, falling back to gopsutil's
// platform string.
func (p *InfoProvider) osVersion() string {
	if data, err := os.ReadFile(p.osReleasePath); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if value, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
				return strings.Trim(strings.TrimSpace(value), `"`)
			}
		}
	}

	if info, err := host.Info(); err == nil && info.Platform != "" {
		return strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}
	return unavailable
}
