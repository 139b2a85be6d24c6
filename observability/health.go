// Package observability keeps the latest process health sample for /healthz.
package observability

import (
	"sync"
	"time"
)

type HealthStats struct {
	Connections int       `json:"connections"`
	RSSBytes    uint64    `json:"rss_bytes"`
	CPUPercent  float64   `json:"cpu_percent"`
	SampledAt   time.Time `json:"sampled_at"`
}

// HealthStore is written by the health monitor and read by HTTP handlers.
type HealthStore struct {
	mu     sync.RWMutex
	latest HealthStats
}

func NewHealthStore() *HealthStore {
	return &HealthStore{}
}

func (s *HealthStore) Update(stats HealthStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = stats
}

func (s *HealthStore) Latest() HealthStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
