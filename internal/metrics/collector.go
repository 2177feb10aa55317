// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token metrics (only for generative operations)
	TotalTokens int64
	MinTokens   int64
	MaxTokens   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Operation   string
	Count       int64
	Failures    int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Token stats (nil if the operation uses no tokens)
	TotalTokens *int64
	AvgTokens   *float64
	MinTokens   *int64
	MaxTokens   *int64
}

// Snapshot represents full worker statistics at a point in time, one entry
// per operation type that has run, sorted by operation name.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot
}

// Collector aggregates in-memory per-operation statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:   time.Duration(math.MaxInt64),
			MinTokens: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordApply records one handler invocation: duration, token usage and
// outcome.
func (c *Collector) RecordApply(op string, duration time.Duration, tokens int64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	if failed {
		m.Failures++
	}
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalTokens += tokens
	if tokens < m.MinTokens {
		m.MinTokens = tokens
	}
	if tokens > m.MaxTokens {
		m.MaxTokens = tokens
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Operation:   name,
		Count:       m.Count,
		Failures:    m.Failures,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if m.TotalTokens > 0 {
		total := m.TotalTokens
		avg := float64(m.TotalTokens) / float64(m.Count)
		minTok := m.MinTokens
		maxTok := m.MaxTokens

		// Reset sentinel values for display
		if minTok == math.MaxInt64 {
			minTok = 0
		}

		snap.TotalTokens = &total
		snap.AvgTokens = &avg
		snap.MinTokens = &minTok
		snap.MaxTokens = &maxTok
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}
	for _, name := range names {
		if op := snapshotOp(name, c.ops[name]); op != nil {
			snap.Operations = append(snap.Operations, *op)
		}
	}
	return snap
}
