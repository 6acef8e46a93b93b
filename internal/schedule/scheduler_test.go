package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memengine/internal/consolidate"
	"github.com/fyrsmithlabs/memengine/internal/embedding"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	embedder := embedding.NewFake(8)
	st, err := store.NewLocalStore(store.LocalConfig{DataDir: t.TempDir(), Dimension: 8}, embedder, nil)
	require.NoError(t, err)
	require.NoError(t, st.Initialize(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	evaluator := quality.NewEvaluator(quality.Config{AIProvider: quality.ProviderNone}, embedder, nil, nil, nil)
	ccfg := consolidate.DefaultConfig()
	ccfg.ReportsDir = t.TempDir()
	c := consolidate.NewConsolidator(st, evaluator, nil, ccfg, nil, nil)

	return New(c, Config{}, nil, nil)
}

func TestScheduler_DefaultStatusReflectsDefaultSchedule(t *testing.T) {
	s := newTestScheduler(t)
	status := s.Status()
	require.Len(t, status.Horizons, 5)

	byHorizon := make(map[consolidate.Horizon]HorizonStatus)
	for _, h := range status.Horizons {
		byHorizon[h.Horizon] = h
	}
	require.True(t, byHorizon[consolidate.HorizonDaily].Enabled)
	require.True(t, byHorizon[consolidate.HorizonWeekly].Enabled)
	require.True(t, byHorizon[consolidate.HorizonMonthly].Enabled)
	require.False(t, byHorizon[consolidate.HorizonQuarterly].Enabled)
	require.False(t, byHorizon[consolidate.HorizonYearly].Enabled)
}

func TestScheduler_TriggerImmediateRunsSynchronously(t *testing.T) {
	s := newTestScheduler(t)
	report, err := s.Trigger(context.Background(), consolidate.HorizonDaily, true)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Equal(t, consolidate.HorizonDaily, report.Horizon)

	status := s.Status()
	var daily HorizonStatus
	for _, h := range status.Horizons {
		if h.Horizon == consolidate.HorizonDaily {
			daily = h
		}
	}
	require.False(t, daily.LastRunAt.IsZero())
}

func TestScheduler_PauseRejectsTrigger(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Pause(consolidate.HorizonDaily))

	_, err := s.Trigger(context.Background(), consolidate.HorizonDaily, true)
	require.Error(t, err)

	require.NoError(t, s.Resume(consolidate.HorizonDaily))
	_, err = s.Trigger(context.Background(), consolidate.HorizonDaily, true)
	require.NoError(t, err)
}

func TestScheduler_StartAndStopIdempotent(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
