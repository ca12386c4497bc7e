package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJobs struct {
	prunes atomic.Int32
	warms  atomic.Int32
	fail   bool
}

func (c *countingJobs) PruneDangling(context.Context) (int, error) {
	c.prunes.Add(1)
	if c.fail {
		return 0, errors.New("store offline")
	}
	return 2, nil
}

func (c *countingJobs) Warm(context.Context) error {
	c.warms.Add(1)
	if c.fail {
		return errors.New("store offline")
	}
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestStartRunsJobsImmediately(t *testing.T) {
	jobs := &countingJobs{}
	s := NewScheduler(jobs, jobs, Schedules{Prune: "@hourly", CacheWarm: "*/30 * * * *"}, quietLogger())

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool {
		return jobs.prunes.Load() == 1 && jobs.warms.Load() == 1
	}, time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	jobs := &countingJobs{}

	s := NewScheduler(jobs, jobs, Schedules{Prune: "not a schedule", CacheWarm: "@hourly"}, quietLogger())
	assert.Error(t, s.Start())

	s = NewScheduler(jobs, jobs, Schedules{Prune: "@hourly", CacheWarm: "61 * * * *"}, quietLogger())
	assert.Error(t, s.Start())
}

func TestJobFailuresAreContained(t *testing.T) {
	jobs := &countingJobs{fail: true}
	s := NewScheduler(jobs, jobs, Schedules{Prune: "@hourly", CacheWarm: "@hourly"}, quietLogger())

	assert.NotPanics(t, func() {
		s.RunPrune()
		s.RunCacheWarm()
	})
	assert.Equal(t, int32(1), jobs.prunes.Load())
	assert.Equal(t, int32(1), jobs.warms.Load())
}
