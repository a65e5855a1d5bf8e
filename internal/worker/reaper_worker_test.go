package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/stretchr/testify/require"
)

type countingReaper struct {
	calls atomic.Int32
}

func (r *countingReaper) Sweep(ctx context.Context) (int, error) {
	r.calls.Add(1)
	return 0, nil
}

func TestReaperWorkerTicksUntilStopped(t *testing.T) {
	reaper := &countingReaper{}
	cfg := config.DefaultUploadConfig()
	cfg.ReaperInterval = 10 * time.Millisecond

	m := StartAllWorkers(context.Background(), &cfg, reaper)
	require.Eventually(t, func() bool { return reaper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	m.Stop()

	after := reaper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, reaper.calls.Load(), "no sweeps after Stop")
}
