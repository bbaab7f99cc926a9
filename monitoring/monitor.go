package monitoring

import (
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// StreamCounter reports how many live stream sessions are running; capture
// loops are the daemon's main resource consumer.
type StreamCounter interface {
	ActiveCount() int
}

// StartMonitoring logs the daemon's own resource usage at the given
// interval. Useful on a Pi where a runaway capture loop shows up as CPU.
func StartMonitoring(interval time.Duration, streams StreamCounter) {
	go func() {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			log.Printf("[MONITOR] Error getting process handle: %v", err)
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			logUsage(proc, streams)
		}
	}()
}

func logUsage(proc *process.Process, streams StreamCounter) {
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		log.Printf("[MONITOR] Error reading CPU usage: %v", err)
		return
	}

	var rssMB, totalMB float64
	if procMem, err := proc.MemoryInfo(); err == nil {
		rssMB = float64(procMem.RSS) / 1024 / 1024
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMB = float64(vm.Total) / 1024 / 1024
	}

	active := 0
	if streams != nil {
		active = streams.ActiveCount()
	}

	log.Printf("[MONITOR] CPU: %.2f%%, RSS: %.1f/%.1f MB, Goroutines: %d, Streams: %d",
		cpuPercent, rssMB, totalMB, runtime.NumGoroutine(), active)
}
