package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCleaner struct{ runs atomic.Int32 }

func (c *countingCleaner) Cleanup(context.Context) (int64, error) {
	c.runs.Add(1)
	return 0, nil
}

type countingSweeper struct{ runs atomic.Int32 }

func (c *countingSweeper) Sweep(context.Context) int {
	c.runs.Add(1)
	return 1
}

func TestSchedulerRunsJobs(t *testing.T) {
	drafts, sessions := &countingCleaner{}, &countingSweeper{}
	s, err := NewScheduler(ScheduleConfig{DraftCleanup: "* * * * * *", SessionSweep: "* * * * * *"}, drafts, sessions, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s.Start()
	require.Eventually(t, func() bool {
		return drafts.runs.Load() > 0 && sessions.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSchedulerSkipsDisabledJobs(t *testing.T) {
	s, err := NewScheduler(ScheduleConfig{DraftCleanup: "", SessionSweep: "0 * * * * *"}, &countingCleaner{}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, s.Jobs())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(ScheduleConfig{DraftCleanup: "every minute"}, &countingCleaner{}, nil, zap.NewNop())
	assert.ErrorContains(t, err, "schedule draft cleanup")
}
