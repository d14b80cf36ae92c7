// ABOUTME: Tests for the task manager lifecycle: spawn, progress, cancel, schedule and reaping
// ABOUTME: Uses short real sleeps for retention like the dedupe cache tests

package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	Name string
}

func waitState[D, R, P any](t *testing.T, m *Manager[D, R, P], id ID, want State) Snapshot[D, R, P] {
	t.Helper()
	var snap Snapshot[D, R, P]
	require.Eventually(t, func() bool {
		s, err := m.Status(id)
		if err != nil {
			return false
		}
		snap = s
		return s.State == want
	}, time.Second, 2*time.Millisecond)
	return snap
}

func TestManager_SpawnCompletesAndIsReaped(t *testing.T) {
	m := NewManager[job, int, string](WithRetention(50 * time.Millisecond))
	defer m.Close()

	release := make(chan struct{})
	id, err := m.Spawn(job{Name: "count"}, func(ctx context.Context, d job, p *Progress[string]) (int, error) {
		p.Report("halfway")
		<-release
		return 42, nil
	})
	require.NoError(t, err)

	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, "count", snap.Data.Name)

	running := waitState(t, m, id, Running)
	if running.HasProgress {
		assert.Equal(t, "halfway", running.Progress)
	}

	close(release)
	done := waitState(t, m, id, Completed)
	assert.Equal(t, 42, done.Result)
	assert.NoError(t, done.Err)
	assert.False(t, done.FinishedAt.IsZero())

	time.Sleep(80 * time.Millisecond)
	_, err = m.Status(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ProgressVisibleWhileRunning(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	reported := make(chan struct{})
	release := make(chan struct{})
	id, err := m.Spawn(job{}, func(ctx context.Context, _ job, p *Progress[int]) (int, error) {
		p.Report(3)
		close(reported)
		<-release
		return 0, nil
	})
	require.NoError(t, err)

	<-reported
	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Running, snap.State)
	assert.True(t, snap.HasProgress)
	assert.Equal(t, 3, snap.Progress)
	close(release)
}

func TestManager_IDsIncrease(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	work := func(context.Context, job, *Progress[int]) (int, error) { return 0, nil }
	a, err := m.Spawn(job{}, work)
	require.NoError(t, err)
	b, err := m.Spawn(job{}, work)
	require.NoError(t, err)
	assert.Greater(t, b, a)
}

func TestManager_Failure(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	boom := errors.New("boom")
	id, err := m.Spawn(job{}, func(context.Context, job, *Progress[int]) (int, error) {
		return 0, boom
	})
	require.NoError(t, err)

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Failed, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
}

func TestManager_PanicBecomesFailed(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	id, err := m.Spawn(job{}, func(context.Context, job, *Progress[int]) (int, error) {
		panic("kaboom")
	})
	require.NoError(t, err)

	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Failed, snap.State)
	assert.Contains(t, snap.Err.Error(), "kaboom")
}

func TestManager_CancelRunningIsCooperative(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	id, err := m.Spawn(job{}, func(ctx context.Context, _ job, _ *Progress[int]) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(id))
	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, snap.State)
	assert.ErrorIs(t, snap.Err, context.Canceled)
}

func TestManager_CancelIgnoredByWorkCompletes(t *testing.T) {
	m := NewManager[job, string, int]()
	defer m.Close()

	id, err := m.Spawn(job{}, func(ctx context.Context, _ job, _ *Progress[int]) (string, error) {
		<-ctx.Done()
		return "finished anyway", nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(id))
	snap, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Completed, snap.State)
	assert.Equal(t, "finished anyway", snap.Result)
}

func TestManager_CancelUnknown(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	assert.ErrorIs(t, m.Cancel(999), ErrNotFound)
	_, err := m.Status(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_SpawnAt(t *testing.T) {
	m := NewManager[job, string, int]()
	defer m.Close()

	at := time.Now().Add(40 * time.Millisecond)
	id, err := m.SpawnAt(at, job{Name: "later"}, func(context.Context, job, *Progress[int]) (string, error) {
		return "ran", nil
	})
	require.NoError(t, err)

	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Pending, snap.State)
	assert.Equal(t, at, snap.StartAt)

	done, err := m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Completed, done.State)
	assert.Equal(t, "ran", done.Result)
	assert.False(t, done.StartedAt.Before(at))
}

func TestManager_CancelPendingIsImmediate(t *testing.T) {
	m := NewManager[job, string, int]()
	defer m.Close()

	ran := make(chan struct{}, 1)
	id, err := m.SpawnAt(time.Now().Add(time.Hour), job{}, func(context.Context, job, *Progress[int]) (string, error) {
		ran <- struct{}{}
		return "", nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(id))
	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, snap.State)

	// Cancelling again is a no-op
	require.NoError(t, m.Cancel(id))

	select {
	case <-ran:
		t.Fatal("cancelled pending task must not run")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestManager_List(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	block := make(chan struct{})
	defer close(block)
	work := func(ctx context.Context, _ job, _ *Progress[int]) (int, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return 0, nil
	}
	for _, name := range []string{"a", "b", "c"} {
		_, err := m.Spawn(job{Name: name}, work)
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Data.Name)
	assert.Equal(t, "c", list[2].Data.Name)
}

func TestManager_SweeperReaps(t *testing.T) {
	m := NewManager[job, int, int](WithRetention(10*time.Millisecond), WithReapInterval(5*time.Millisecond))
	defer m.Close()

	id, err := m.Spawn(job{}, func(context.Context, job, *Progress[int]) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = m.Wait(context.Background(), id)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.tasks) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestManager_WaitRespectsContext(t *testing.T) {
	m := NewManager[job, int, int]()
	defer m.Close()

	id, err := m.Spawn(job{}, func(ctx context.Context, _ job, _ *Progress[int]) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Wait(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_CloseCancelsAndRejects(t *testing.T) {
	m := NewManager[job, int, int]()

	id, err := m.Spawn(job{}, func(ctx context.Context, _ job, _ *Progress[int]) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	m.Close()
	m.Close()

	snap, err := m.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, snap.State)

	_, err = m.Spawn(job{}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("17")
	require.NoError(t, err)
	assert.Equal(t, ID(17), id)
	assert.Equal(t, "17", id.String())

	_, err = ParseID("abc")
	assert.Error(t, err)
}
