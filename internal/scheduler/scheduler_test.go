package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(call int) error
}

func (j *funcJob) Name() string     { return j.name }
func (j *funcJob) Schedule() string { return j.schedule }
func (j *funcJob) Run(ctx context.Context) error {
	return j.run(int(j.calls.Add(1)))
}

func newJob(run func(call int) error) *funcJob {
	return &funcJob{name: "test", schedule: "0 0 7 * * MON-FRI", run: run}
}

func TestScheduler_RetriesTransientFailures(t *testing.T) {
	s := New(nil, WithRetry(3, 0))
	job := newJob(func(call int) error {
		if call < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("test")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)
}

func TestScheduler_DoesNotRetryPermanentFailures(t *testing.T) {
	s := New(nil, WithRetry(3, 0))
	job := newJob(func(call int) error {
		return Permanent(errors.New("infeasible"))
	})
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("test")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Contains(t, result.Error, "infeasible")
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	s := New(nil, WithRetry(2, 0))
	require.NoError(t, s.AddJob(newJob(func(int) error { return errors.New("timeout") })))

	result, err := s.RunJobSync("test")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	stats := s.GetJobStats()["test"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestScheduler_StopCancelsRetryWait(t *testing.T) {
	s := New(nil, WithRetry(5, time.Hour))
	job := newJob(func(int) error { return errors.New("transient") })
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunJob("test"))

	// 첫 실행 후 대기 상태 진입을 기다림
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the retry wait")
	}
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestScheduler_RunAfterStop(t *testing.T) {
	s := New(nil, WithRetry(0, 0))
	job := newJob(func(int) error { return nil })
	require.NoError(t, s.AddJob(job))

	s.Stop()

	assert.ErrorIs(t, s.RunJob("test"), ErrStopped)
	_, err := s.RunJobSync("test")
	assert.ErrorIs(t, err, ErrStopped)
	assert.Zero(t, job.calls.Load())
}

func TestScheduler_AddRemove(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob(newJob(func(int) error { return nil })))
	assert.Error(t, s.AddJob(newJob(func(int) error { return nil })), "duplicate job")
	assert.Equal(t, []string{"test"}, s.GetAllJobs())

	bad := newJob(func(int) error { return nil })
	bad.name, bad.schedule = "bad", "not a schedule"
	assert.Error(t, s.AddJob(bad))

	require.NoError(t, s.RemoveJob("test"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("test"))

	_, err := s.RunJobSync("test")
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("bad data")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%4 != 0})
	}

	// 최근 100건만 유지
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Len(t, h.GetFailedResults(), 25)
	assert.InDelta(t, 0.75, h.GetSuccessRate(), 1e-12)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(3))
}
