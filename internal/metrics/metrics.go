// Package metrics provides the snapshot source consumed by the realtime
// metrics broadcaster.
package metrics

import (
	"context"

	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics is the host-wide aggregate every client may see.
type SystemMetrics struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	MemoryUsedMB  uint64  `json:"memoryUsedMb"`
	MemoryTotalMB uint64  `json:"memoryTotalMb"`
}

// ProcessMetrics describes one running analysis. TeamID drives per-session
// filtering in the broadcaster.
type ProcessMetrics struct {
	AnalysisID string `json:"analysisId"`
	Name       string `json:"name"`
	TeamID     string `json:"teamId"`
	Status     string `json:"status"`
}

// Snapshot bundles the aggregate with the per-process breakdown.
type Snapshot struct {
	System    SystemMetrics    `json:"system"`
	Processes []ProcessMetrics `json:"processes"`
}

// Source produces metrics snapshots.
type Source interface {
	GetAllMetrics(ctx context.Context) (*Snapshot, error)
}

// SystemSource samples host CPU/memory via gopsutil and lists running
// analyses from the directory as the process breakdown.
type SystemSource struct {
	analyses directory.AnalysisDirectory
}

func NewSystemSource(analyses directory.AnalysisDirectory) *SystemSource {
	return &SystemSource{analyses: analyses}
}

func (s *SystemSource) GetAllMetrics(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	// Non-blocking CPU sample: interval 0 reports usage since the last call
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snap.System.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	snap.System.MemoryPercent = vm.UsedPercent
	snap.System.MemoryUsedMB = vm.Used / (1024 * 1024)
	snap.System.MemoryTotalMB = vm.Total / (1024 * 1024)

	all, err := s.analyses.GetAllAnalyses(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.Status != models.AnalysisRunning {
			continue
		}
		snap.Processes = append(snap.Processes, ProcessMetrics{
			AnalysisID: a.ID,
			Name:       a.Name,
			TeamID:     a.OwningTeam(),
			Status:     string(a.Status),
		})
	}

	return snap, nil
}

// StaticSource returns a fixed snapshot or error; used in tests and as a
// stand-in when host sampling is unavailable.
type StaticSource struct {
	Snap *Snapshot
	Err  error
}

func (s *StaticSource) GetAllMetrics(ctx context.Context) (*Snapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Snap, nil
}

var _ Source = (*SystemSource)(nil)
var _ Source = (*StaticSource)(nil)
