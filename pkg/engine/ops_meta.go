package engine

import "context"

// MemoryHealth is memory_health: a liveness probe.
func (e *Engine) MemoryHealth(ctx context.Context) (HealthResponse, error) {
	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return HealthResponse{}, err
	}
	return HealthResponse{Backend: stats.BackendID, Count: stats.Count, Ready: stats.Ready}, nil
}

// MemoryStats is memory_stats: store size plus, for a hybrid backend, the
// sync engine's throughput counters.
func (e *Engine) MemoryStats(ctx context.Context) (StatsResponse, error) {
	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	resp := StatsResponse{
		Count:     stats.Count,
		Dimension: stats.Dimension,
		BackendID: stats.BackendID,
		Ready:     stats.Ready,
	}
	if e.syncEngine != nil {
		s := e.syncEngine.SyncStatus()
		resp.SyncState = string(s.State)
		resp.SyncQueueDepth = s.QueueDepth
		resp.SyncRetried = s.RetriedOps
		resp.SyncDropped = s.DroppedOps
	}
	return resp, nil
}
