package state

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(3, nil)

	assert.Equal(t, StatePending, job.CurrentState())
	assert.NotEqual(t, uuid.Nil, job.ID())

	require.NoError(t, job.Trigger(EventStart))
	assert.Equal(t, StateRunning, job.CurrentState())

	job.RecordResult(true)
	job.RecordResult(true)
	job.RecordResult(false)

	require.NoError(t, job.Trigger(EventComplete))

	p := job.Progress()
	assert.Equal(t, StateCompleted, p.State)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Done)
	assert.Equal(t, 1, p.Failed)
	require.NotNil(t, p.EndedAt)
}

func TestJob_InvalidTransition(t *testing.T) {
	job := NewJob(1, nil)

	// pending 状态不能直接完成
	assert.Error(t, job.Trigger(EventComplete))

	require.NoError(t, job.Trigger(EventStart))
	require.NoError(t, job.Trigger(EventComplete))

	// 完成后不能再失败
	assert.Error(t, job.Trigger(EventFail))
}

func TestJob_FailFromPending(t *testing.T) {
	job := NewJob(1, nil)
	job.SetError("output dir not writable")

	require.NoError(t, job.Trigger(EventFail))

	p := job.Progress()
	assert.Equal(t, StateFailed, p.State)
	assert.Equal(t, "output dir not writable", p.Error)
}

func TestJob_StateChangeCallback(t *testing.T) {
	var transitions []string
	job := NewJob(1, func(id uuid.UUID, from, to string) {
		transitions = append(transitions, from+"->"+to)
	})

	require.NoError(t, job.Trigger(EventStart))
	require.NoError(t, job.Trigger(EventComplete))

	assert.Equal(t, []string{"pending->running", "running->completed"}, transitions)
}

func TestManager(t *testing.T) {
	m := NewManager(nil)

	job := m.Create(5)
	got, ok := m.Get(job.ID())
	require.True(t, ok)
	assert.Same(t, job, got)

	_, ok = m.Get(uuid.New())
	assert.False(t, ok)

	m.Create(2)
	assert.Len(t, m.AllProgress(), 2)
}
