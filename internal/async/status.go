// Package async runs the build command's graph/memory reindex in a
// background goroutine with a thread-safe progress snapshot, so the
// CLI's uiformat.Renderer can poll it without the indexing work itself
// knowing anything about terminals.
package async

import (
	"sync"
	"time"
)

// BuildStatus represents the overall build state.
type BuildStatus string

const (
	StatusRunning BuildStatus = "running"
	StatusReady   BuildStatus = "ready"
	StatusError   BuildStatus = "error"
)

// BuildStage is the current stage of a build run.
type BuildStage string

const (
	StageGraphIngest BuildStage = "graph_ingest"
	StageMemoryLoad  BuildStage = "memory_load"
	StageEmbedding   BuildStage = "embedding"
	StageHNSWBuild   BuildStage = "hnsw_build"
)

// BuildProgressSnapshot is an immutable snapshot of build progress.
type BuildProgressSnapshot struct {
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	ItemsTotal     int     `json:"items_total"`
	ItemsProcessed int     `json:"items_processed"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// BuildProgress provides thread-safe tracking of build progress across
// the graph_ingest -> memory_load -> embedding -> hnsw_build stages.
type BuildProgress struct {
	mu sync.RWMutex

	status       BuildStatus
	stage        BuildStage
	total        int
	processed    int
	startTime    time.Time
	errorMessage string
}

// NewBuildProgress creates a progress tracker initialized for the
// graph_ingest stage.
func NewBuildProgress() *BuildProgress {
	return &BuildProgress{
		status:    StatusRunning,
		stage:     StageGraphIngest,
		startTime: time.Now(),
	}
}

// SetStage moves to a new stage and resets the item count for it.
func (p *BuildProgress) SetStage(stage BuildStage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = stage
	p.total = total
	p.processed = 0
}

// Update records how many items of the current stage have completed.
func (p *BuildProgress) Update(processed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = processed
}

// SetError marks the build as failed.
func (p *BuildProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the build as complete.
func (p *BuildProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusReady
}

// IsRunning reports whether the build is still in progress.
func (p *BuildProgress) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status == StatusRunning
}

// Snapshot returns an immutable copy of the current state.
func (p *BuildProgress) Snapshot() BuildProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pct float64
	if p.total > 0 {
		pct = float64(p.processed) / float64(p.total) * 100.0
	}
	return BuildProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		ItemsTotal:     p.total,
		ItemsProcessed: p.processed,
		ProgressPct:    pct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
