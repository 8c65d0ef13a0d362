package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

// 生成任务状态常量
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// 事件常量
const (
	EventStart    = "start"
	EventComplete = "complete"
	EventFail     = "fail"
)

// JobProgress 任务进度快照
type JobProgress struct {
	JobID     uuid.UUID  `json:"job_id"`
	State     string     `json:"state"`
	Total     int        `json:"total"`
	Done      int        `json:"done"`
	Failed    int        `json:"failed"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Job 警告信生成任务的生命周期状态机
type Job struct {
	mu       sync.RWMutex
	id       uuid.UUID
	fsm      *fsm.FSM
	progress JobProgress
	onChange func(jobID uuid.UUID, from, to string)
}

// NewJob 创建任务状态机
func NewJob(total int, onChange func(jobID uuid.UUID, from, to string)) *Job {
	j := &Job{
		id:       uuid.New(),
		onChange: onChange,
	}
	j.progress = JobProgress{
		JobID:     j.id,
		State:     StatePending,
		Total:     total,
		StartedAt: time.Now(),
	}

	j.fsm = fsm.NewFSM(
		StatePending,
		fsm.Events{
			{Name: EventStart, Src: []string{StatePending}, Dst: StateRunning},
			{Name: EventComplete, Src: []string{StateRunning}, Dst: StateCompleted},
			{Name: EventFail, Src: []string{StatePending, StateRunning}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if j.onChange != nil && e.Src != e.Dst {
					j.onChange(j.id, e.Src, e.Dst)
				}
			},
		},
	)

	return j
}

// ID 任务标识
func (j *Job) ID() uuid.UUID {
	return j.id
}

// CurrentState 获取当前状态
func (j *Job) CurrentState() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.fsm.Current()
}

// Progress 获取进度快照（副本）
func (j *Job) Progress() JobProgress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	p := j.progress
	p.State = j.fsm.Current()
	return p
}

// RecordResult 累计一封信的处理结果
func (j *Job) RecordResult(ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ok {
		j.progress.Done++
	} else {
		j.progress.Failed++
	}
}

// Trigger 触发状态转换
func (j *Job) Trigger(event string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	j.progress.State = j.fsm.Current()
	if j.progress.State == StateCompleted || j.progress.State == StateFailed {
		now := time.Now()
		j.progress.EndedAt = &now
	}
	return nil
}

// SetError 记录任务级错误信息
func (j *Job) SetError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress.Error = msg
}

// Manager 任务状态机管理器
type Manager struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]*Job
	onChange func(jobID uuid.UUID, from, to string)
}

// NewManager 创建管理器
func NewManager(onChange func(jobID uuid.UUID, from, to string)) *Manager {
	return &Manager{
		jobs:     make(map[uuid.UUID]*Job),
		onChange: onChange,
	}
}

// Create 创建并登记一个新任务
func (m *Manager) Create(total int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := NewJob(total, m.onChange)
	m.jobs[job.ID()] = job
	return job
}

// Get 获取任务
func (m *Manager) Get(id uuid.UUID) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// AllProgress 获取所有任务的进度
func (m *Manager) AllProgress() []JobProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	progress := make([]JobProgress, 0, len(m.jobs))
	for _, job := range m.jobs {
		progress = append(progress, job.Progress())
	}
	return progress
}
