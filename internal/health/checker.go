// Package health implements the HealthChecker capability, per spec §4.13:
// it probes the embedder and vector-store dependencies within a bounded
// timeout, caches the composite result briefly, and derives an overall
// status from the two probe outcomes.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/store"
)

// probeTimeout bounds each individual dependency probe.
const probeTimeout = 5 * time.Second

// cacheTTL is how long a composite health result is reused before the
// checker re-probes its dependencies.
const cacheTTL = 30 * time.Second

// probeInput is the fixed embedding input used to probe the embedder,
// exercising the same code path a real query would without depending on
// any project-specific content.
const probeInput = "healthcheck"

// sentinelCollection is queried for stats as the vector-store liveness
// probe; its absence still proves the backend is reachable.
const sentinelCollection = "health_check_sentinel"

// Status is one dependency's reachability.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"
)

// DependencyStatus is one probed dependency's outcome.
type DependencyStatus struct {
	Status    Status
	LatencyMs int64
	Error     string
}

// OverallStatus summarizes both dependencies.
type OverallStatus string

const (
	OverallHealthy   OverallStatus = "healthy"
	OverallDegraded  OverallStatus = "degraded"
	OverallUnhealthy OverallStatus = "unhealthy"
)

// Dependencies holds the two probed dependency outcomes.
type Dependencies struct {
	VectorStore     DependencyStatus
	EmbeddingEngine DependencyStatus
}

// HealthStatus is the composite result, shaped after the health_check tool
// response in spec §6.
type HealthStatus struct {
	Status        OverallStatus
	Timestamp     time.Time
	UptimeSeconds int64
	Version       string
	Dependencies  Dependencies
}

// Checker probes an Embedder and a VectorStore and caches the composite
// result for cacheTTL.
type Checker struct {
	Embedder  embed.Embedder
	Vector    store.VectorStore
	Version   string
	startedAt time.Time

	mu       sync.Mutex
	cached   *HealthStatus
	cachedAt time.Time
}

// New builds a Checker; startedAt anchors UptimeSeconds.
func New(embedder embed.Embedder, vector store.VectorStore, version string) *Checker {
	return &Checker{Embedder: embedder, Vector: vector, Version: version, startedAt: time.Now()}
}

// Check returns the cached composite result if still fresh, otherwise
// re-probes both dependencies and caches the new result.
func (c *Checker) Check(ctx context.Context) (*HealthStatus, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.cachedAt) < cacheTTL {
		cached := *c.cached
		c.mu.Unlock()
		return &cached, nil
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	var vecStatus, embedStatus DependencyStatus

	wg.Add(2)
	go func() {
		defer wg.Done()
		embedStatus = c.probeEmbedder(ctx)
	}()
	go func() {
		defer wg.Done()
		vecStatus = c.probeVectorStore(ctx)
	}()
	wg.Wait()

	status := deriveOverall(vecStatus.Status, embedStatus.Status)
	result := &HealthStatus{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(c.startedAt).Seconds()),
		Version:       c.Version,
		Dependencies: Dependencies{
			VectorStore:     vecStatus,
			EmbeddingEngine: embedStatus,
		},
	}

	c.mu.Lock()
	c.cached = result
	c.cachedAt = time.Now()
	c.mu.Unlock()

	cached := *result
	return &cached, nil
}

func (c *Checker) probeEmbedder(ctx context.Context) DependencyStatus {
	if c.Embedder == nil {
		return DependencyStatus{Status: StatusUnknown}
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.Embedder.Embed(ctx, probeInput)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return DependencyStatus{Status: StatusDown, LatencyMs: latency, Error: err.Error()}
	}
	return DependencyStatus{Status: StatusUp, LatencyMs: latency}
}

func (c *Checker) probeVectorStore(ctx context.Context) DependencyStatus {
	if c.Vector == nil {
		return DependencyStatus{Status: StatusUnknown}
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.Vector.GetStats(ctx, sentinelCollection)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		// A missing sentinel collection still proves the backend is
		// reachable, per spec §4.13.
		if errkit.KindOf(err) == errkit.KindNotFound {
			return DependencyStatus{Status: StatusUp, LatencyMs: latency}
		}
		return DependencyStatus{Status: StatusDown, LatencyMs: latency, Error: err.Error()}
	}
	return DependencyStatus{Status: StatusUp, LatencyMs: latency}
}

func deriveOverall(vec, embedding Status) OverallStatus {
	upCount := 0
	if vec == StatusUp {
		upCount++
	}
	if embedding == StatusUp {
		upCount++
	}
	switch upCount {
	case 2:
		return OverallHealthy
	case 1:
		return OverallDegraded
	default:
		return OverallUnhealthy
	}
}
