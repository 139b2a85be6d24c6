package workers

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitor samples the relay process and the live connection count.
type HealthMonitor struct {
	log      *slog.Logger
	registry contract.IRegistry
	store    *observability.HealthStore
	interval time.Duration
	now      func() time.Time
}

func NewHealthMonitor(log *slog.Logger, registry contract.IRegistry,
	store *observability.HealthStore, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{log: log, registry: registry, store: store, interval: interval, now: time.Now}
}

func (w *HealthMonitor) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("unable to inspect own process: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.Sample(proc)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.Sample(proc)
		}
	}
}

// Sample stores one snapshot. A metric that cannot be read keeps its zero value.
func (w *HealthMonitor) Sample(proc *process.Process) {
	stats := observability.HealthStats{
		Connections: w.registry.Count(),
		SampledAt:   w.now().UTC(),
	}
	if mem, err := proc.MemoryInfo(); err != nil {
		w.log.Debug("Error while finding process ram usage", "error", err)
	} else {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err != nil {
		w.log.Debug("Error while finding process cpu usage", "error", err)
	} else {
		stats.CPUPercent = cpu
	}
	w.store.Update(stats)
}
