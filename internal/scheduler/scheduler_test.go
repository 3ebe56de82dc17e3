package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"niena/internal/config"
	"niena/internal/errors"
	"niena/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// heldLocker never grants the lock
type heldLocker struct{}

func (heldLocker) TryRun(context.Context, string, time.Duration, func(context.Context) error) (bool, error) {
	return false, nil
}

func TestRunNow(t *testing.T) {
	s := New(config.SchedulerConfig{LockTTL: time.Minute}, nil, testLogger())

	var runs int32
	ran, err := s.RunNow(context.Background(), funcJob{name: "count", fn: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	boom := errors.NewInternalError("BOOM", "boom", nil)
	ran, err = s.RunNow(context.Background(), funcJob{name: "fail", fn: func(context.Context) error { return boom }})
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestRunNowSkipsWhenLockHeld(t *testing.T) {
	s := New(config.SchedulerConfig{}, heldLocker{}, testLogger())

	ran, err := s.RunNow(context.Background(), funcJob{name: "x", fn: func(context.Context) error {
		t.Fatal("job must not run")
		return nil
	}})
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(config.SchedulerConfig{}, nil, testLogger())
	err := s.Add("not a spec", funcJob{name: "x"}, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestScheduledJobFiresAndStops(t *testing.T) {
	s := New(config.SchedulerConfig{LockTTL: time.Minute}, nil, testLogger())

	fired := make(chan struct{}, 1)
	require.NoError(t, s.Add("@every 1s", funcJob{name: "tick", fn: func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}}, time.Second))

	s.Start()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestLocalLockerExcludesConcurrentRuns(t *testing.T) {
	l := NewLocalLocker()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = l.TryRun(context.Background(), "job", time.Minute, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ran, err := l.TryRun(context.Background(), "job", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.False(t, ran)

	ran, err = l.TryRun(context.Background(), "other", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, ran)
	close(release)
}

type fakeIngester struct {
	queries []string
	pages   int
}

func (f *fakeIngester) Run(_ context.Context, queries []string, pages int) (pipeline.IngestReport, error) {
	f.queries, f.pages = queries, pages
	return pipeline.IngestReport{Fetched: 3, Stored: 2, Skipped: 1}, nil
}

type fakeExpirer struct{ batch int }

func (f *fakeExpirer) ExpirePlans(_ context.Context, batch int) (int, error) {
	f.batch = batch
	return 4, nil
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) SweepStale(context.Context) (int, error) {
	f.calls++
	return 2, nil
}

func TestJobs(t *testing.T) {
	ing := &fakeIngester{}
	job := NewIngestJob(ing, []string{"golang developer"}, 2, testLogger())
	assert.Equal(t, JobIngest, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"golang developer"}, ing.queries)
	assert.Equal(t, 2, ing.pages)

	exp := &fakeExpirer{}
	pj := NewPlanExpiryJob(exp, 100, testLogger())
	assert.Equal(t, JobPlanExpiry, pj.Name())
	require.NoError(t, pj.Run(context.Background()))
	assert.Equal(t, 100, exp.batch)

	sw := &fakeSweeper{}
	sj := NewStaleSweepJob(sw, testLogger())
	assert.Equal(t, JobStaleSweep, sj.Name())
	require.NoError(t, sj.Run(context.Background()))
	assert.Equal(t, 1, sw.calls)
}

func TestJobsListsRegisteredInOrder(t *testing.T) {
	s := New(config.SchedulerConfig{}, nil, testLogger())
	require.NoError(t, s.Add("@hourly", funcJob{name: "a"}, 0))
	require.NoError(t, s.Add("@daily", funcJob{name: "b"}, 0))
	assert.Error(t, s.Add("bad", funcJob{name: "c"}, 0))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name())
	assert.Equal(t, "b", jobs[1].Name())
}
