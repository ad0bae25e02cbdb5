package metrics

import (
	"codedoc/internal/domain"
	"sync"
	"time"
)

// Collector aggregates lifetime counters over completed tasks.
type Collector struct {
	mu           sync.Mutex
	total        int64
	successful   int64
	failed       int64
	cumulativeMs int64
	byType       map[domain.TaskType]int64
	slaBreaches  func() int64
}

type Snapshot struct {
	TotalTasks          int64                     `json:"total_tasks"`
	SuccessfulTasks     int64                     `json:"successful_tasks"`
	FailedTasks         int64                     `json:"failed_tasks"`
	CumulativeLatencyMs int64                     `json:"cumulative_latency_ms"`
	AvgLatencyMs        float64                   `json:"avg_latency_ms"`
	SuccessRate         float64                   `json:"success_rate"`
	SLABreaches         int64                     `json:"sla_breaches"`
	ByType              map[domain.TaskType]int64 `json:"by_type"`
}

func NewCollector() *Collector {
	return &Collector{byType: make(map[domain.TaskType]int64)}
}

// WithSLABreaches lets the snapshot include a breach count owned elsewhere.
func (c *Collector) WithSLABreaches(fn func() int64) *Collector {
	c.mu.Lock()
	c.slaBreaches = fn
	c.mu.Unlock()
	return c
}

func (c *Collector) Record(typ domain.TaskType, success bool, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if success {
		c.successful++
	} else {
		c.failed++
	}
	c.cumulativeMs += latency.Milliseconds()
	c.byType[typ]++
}

// RecordTask records a terminal task.
func (c *Collector) RecordTask(t *domain.Task) {
	c.Record(t.Type, t.Status == domain.StatusCompleted, t.Latency())
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		TotalTasks:          c.total,
		SuccessfulTasks:     c.successful,
		FailedTasks:         c.failed,
		CumulativeLatencyMs: c.cumulativeMs,
		ByType:              make(map[domain.TaskType]int64, len(c.byType)),
	}
	if c.total > 0 {
		s.AvgLatencyMs = float64(c.cumulativeMs) / float64(c.total)
		s.SuccessRate = float64(c.successful) / float64(c.total)
	}
	for k, v := range c.byType {
		s.ByType[k] = v
	}
	if c.slaBreaches != nil {
		s.SLABreaches = c.slaBreaches()
	}
	return s
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total, c.successful, c.failed, c.cumulativeMs = 0, 0, 0, 0
	c.byType = make(map[domain.TaskType]int64)
}
