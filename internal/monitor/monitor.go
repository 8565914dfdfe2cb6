// Package monitor tracks per-operation timing and success over a rolling
// window, derives a health score from latency and error rate, and gates the
// orchestrator's fallback path once health drops below a configured floor.
package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/askfolio/askfolio/internal/config"
	"go.uber.org/zap"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const healthyThreshold = 0.8

type sample struct {
	at       time.Time
	duration time.Duration
	success  bool
	errKind  string
}

// OperationStats summarizes the recent samples of one named operation.
type OperationStats struct {
	Name       string        `json:"name"`
	Count      int           `json:"count"`
	Errors     int           `json:"errors"`
	ErrorRate  float64       `json:"error_rate"`
	AvgLatency time.Duration `json:"avg_latency"`
	MaxLatency time.Duration `json:"max_latency"`
}

// HealthStatus is the derived health of the pipeline. It is recomputed on
// demand from the sample window and never persisted.
type HealthStatus struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// Report is the full performance report exposed to callers.
type Report struct {
	HealthScore     float64          `json:"health_score"`
	Status          string           `json:"status"`
	Operations      []OperationStats `json:"per_operation_stats"`
	Recommendations []string         `json:"recommendations"`
}

// Monitor is safe for concurrent use. Recording is a short in-memory
// operation and never fails the caller's main path.
type Monitor struct {
	mu  sync.Mutex
	cfg config.MonitorConfig
	ops map[string][]sample

	logger *zap.Logger
	stop   chan struct{}
	once   sync.Once
	now    func() time.Time
}

// New creates a monitor and starts a background pruner for samples that have
// aged out of the rolling window. Close stops it.
func New(cfg config.MonitorConfig, logger *zap.Logger) *Monitor {
	m := &Monitor{
		cfg:    cfg,
		ops:    make(map[string][]sample),
		logger: logger,
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	if cfg.CleanupInterval > 0 {
		go m.pruner(cfg.CleanupInterval)
	}
	return m
}

// RecordOperation records one timed operation outcome. errKind is empty for
// successes.
func (m *Monitor) RecordOperation(name string, start time.Time, success bool, errKind string) {
	now := m.now()
	s := sample{at: now, duration: now.Sub(start), success: success, errKind: errKind}

	if s.duration > m.cfg.LatencyCeiling {
		m.logger.Warn("operation exceeded latency ceiling",
			zap.String("operation", name),
			zap.Duration("duration", s.duration),
			zap.Duration("ceiling", m.cfg.LatencyCeiling))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	window := append(m.ops[name], s)
	if len(window) > m.cfg.MaxSamples {
		window = window[len(window)-m.cfg.MaxSamples:]
	}
	m.ops[name] = window
}

// Health recomputes the rolling health score. The score decreases
// monotonically as latency and error rate worsen; an empty window is
// perfectly healthy.
func (m *Monitor) Health() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthLocked()
}

// ShouldUseFallback reports whether health has dropped below the configured
// floor. This is the circuit-breaker decision consumed by the orchestrator.
func (m *Monitor) ShouldUseFallback() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthLocked().Score < m.cfg.HealthFloor
}

// Stats returns per-operation aggregates over the current window, sorted by
// operation name.
func (m *Monitor) Stats() []OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

// Report builds the full performance report with recommendations.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := m.healthLocked()
	stats := m.statsLocked()

	var recs []string
	for _, op := range stats {
		if op.ErrorRate >= m.cfg.ErrorRateLimit {
			recs = append(recs, "investigate elevated error rate for operation "+op.Name)
		}
		if op.AvgLatency > m.cfg.LatencyTarget {
			recs = append(recs, "average latency for operation "+op.Name+" is above target; check external providers")
		}
	}
	if health.Score < m.cfg.HealthFloor {
		recs = append(recs, "health is below the fallback floor; queries are served from the fallback path")
	}

	return Report{
		HealthScore:     health.Score,
		Status:          health.Status,
		Operations:      stats,
		Recommendations: recs,
	}
}

// Close stops the background pruner.
func (m *Monitor) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Monitor) healthLocked() HealthStatus {
	cutoff := m.now().Add(-m.cfg.Window)

	var count, errors int
	var total time.Duration
	alert := false
	for _, window := range m.ops {
		for _, s := range window {
			if s.at.Before(cutoff) {
				continue
			}
			count++
			total += s.duration
			if !s.success {
				errors++
			}
			if s.duration > m.cfg.LatencyCeiling {
				alert = true
			}
		}
	}

	if count == 0 {
		return HealthStatus{Status: StatusHealthy, Score: 1.0}
	}

	avg := total / time.Duration(count)
	errorRate := float64(errors) / float64(count)

	score := 1.0
	if avg > m.cfg.LatencyTarget {
		over := float64(avg-m.cfg.LatencyTarget) / float64(m.cfg.LatencyCeiling-m.cfg.LatencyTarget)
		if over > 1 {
			over = 1
		}
		score -= 0.4 * over
	}
	score -= 0.6 * errorRate
	if alert || errorRate >= m.cfg.ErrorRateLimit {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}

	status := StatusHealthy
	switch {
	case score >= healthyThreshold:
		status = StatusHealthy
	case score >= m.cfg.HealthFloor:
		status = StatusDegraded
	default:
		status = StatusUnhealthy
	}
	return HealthStatus{Status: status, Score: score}
}

func (m *Monitor) statsLocked() []OperationStats {
	cutoff := m.now().Add(-m.cfg.Window)

	stats := make([]OperationStats, 0, len(m.ops))
	for name, window := range m.ops {
		op := OperationStats{Name: name}
		var total time.Duration
		for _, s := range window {
			if s.at.Before(cutoff) {
				continue
			}
			op.Count++
			total += s.duration
			if !s.success {
				op.Errors++
			}
			if s.duration > op.MaxLatency {
				op.MaxLatency = s.duration
			}
		}
		if op.Count == 0 {
			continue
		}
		op.AvgLatency = total / time.Duration(op.Count)
		op.ErrorRate = float64(op.Errors) / float64(op.Count)
		stats = append(stats, op)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (m *Monitor) pruner(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.prune()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) prune() {
	cutoff := m.now().Add(-m.cfg.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, window := range m.ops {
		kept := window[:0]
		for _, s := range window {
			if !s.at.Before(cutoff) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(m.ops, name)
			continue
		}
		m.ops[name] = kept
	}
}
