package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/fleetguard/internal/config"
	"github.com/langchou/fleetguard/internal/letters"
	"github.com/langchou/fleetguard/internal/state"
	"github.com/langchou/fleetguard/internal/warning"
)

// LetterRecorder 警告信审计接口（由 repository.WarningLetterRepository 实现）
type LetterRecorder interface {
	Record(ctx context.Context, jobID uuid.UUID, p warning.LetterPayload, documentPath string) error
}

// Converter 外部文档转换接口（由 letters.ConverterClient 实现）
type Converter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// LetterService 警告信批量生成服务
// 每个任务由固定数量的 worker 并发渲染，结果通过 channel 汇聚到单个协程，
// worker 之间不共享可变计数器
type LetterService struct {
	cfg      *config.Config
	logger   *zap.Logger
	renderer letters.Renderer
	conv     Converter      // 可选，nil 时保留渲染产物
	recorder LetterRecorder // 可选，nil 时不落审计记录
	jobs     *state.Manager

	progressCh chan state.JobProgress
}

// NewLetterService 创建生成服务
func NewLetterService(
	cfg *config.Config,
	logger *zap.Logger,
	renderer letters.Renderer,
	conv Converter,
	recorder LetterRecorder,
) *LetterService {
	s := &LetterService{
		cfg:        cfg,
		logger:     logger,
		renderer:   renderer,
		conv:       conv,
		recorder:   recorder,
		progressCh: make(chan state.JobProgress, 64),
	}
	s.jobs = state.NewManager(func(jobID uuid.UUID, from, to string) {
		logger.Info("Letter job state changed",
			zap.String("job_id", jobID.String()),
			zap.String("from", from),
			zap.String("to", to),
		)
	})
	return s
}

// Subscribe 订阅任务进度更新
func (s *LetterService) Subscribe() <-chan state.JobProgress {
	return s.progressCh
}

// GetJob 查询任务进度
func (s *LetterService) GetJob(id uuid.UUID) (state.JobProgress, bool) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return state.JobProgress{}, false
	}
	return job.Progress(), true
}

// ListJobs 列出所有任务进度
func (s *LetterService) ListJobs() []state.JobProgress {
	return s.jobs.AllProgress()
}

// StartJob 启动一个生成任务，立即返回任务句柄，文档在后台生成
func (s *LetterService) StartJob(payloads []warning.LetterPayload) (*state.Job, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("no letters to generate")
	}

	job := s.jobs.Create(len(payloads))
	if err := job.Trigger(state.EventStart); err != nil {
		return nil, err
	}

	go s.run(job, payloads)
	return job, nil
}

type letterResult struct {
	index int
	path  string
	err   error
}

// run 执行一个任务：有界并发渲染，单协程汇聚结果
func (s *LetterService) run(job *state.Job, payloads []warning.LetterPayload) {
	ctx := context.Background()

	outDir := filepath.Join(s.cfg.LetterOutputDir, job.ID().String())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		s.logger.Error("Failed to create letter output dir", zap.Error(err))
		job.SetError(err.Error())
		s.trigger(job, state.EventFail)
		s.emit(job)
		return
	}

	results := make(chan letterResult, len(payloads))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.LetterWorkers)
	for i := range payloads {
		i := i
		g.Go(func() error {
			path, err := s.generateOne(ctx, job.ID(), outDir, i, payloads[i])
			// 单封失败不终止整批
			results <- letterResult{index: i, path: path, err: err}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			s.logger.Warn("Failed to generate letter",
				zap.String("job_id", job.ID().String()),
				zap.Int("index", res.index),
				zap.Error(res.err),
			)
		}
		job.RecordResult(res.err == nil)
		s.emit(job)
	}

	progress := job.Progress()
	if progress.Done == 0 && progress.Failed > 0 {
		job.SetError("all letters failed to generate")
		s.trigger(job, state.EventFail)
	} else {
		s.trigger(job, state.EventComplete)
	}
	s.emit(job)

	s.logger.Info("Letter job finished",
		zap.String("job_id", job.ID().String()),
		zap.Int("done", progress.Done),
		zap.Int("failed", progress.Failed),
	)
}

// generateOne 渲染并落盘一封警告信
func (s *LetterService) generateOne(ctx context.Context, jobID uuid.UUID, outDir string, index int, p warning.LetterPayload) (string, error) {
	content, err := s.renderer.Render(ctx, p)
	if err != nil {
		return "", err
	}

	ext := s.renderer.Ext()
	if s.conv != nil {
		pdf, err := s.conv.Convert(ctx, content)
		if err != nil {
			return "", err
		}
		content = pdf
		ext = "pdf"
	}

	name := p.DriverName
	if name == warning.FallbackDriverName {
		name = p.VehiclePlate
	}
	filename := fmt.Sprintf("%03d_%s.%s", index+1, sanitizeFilename(name), ext)
	path := filepath.Join(outDir, filename)

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write letter file: %w", err)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, jobID, p, path); err != nil {
			// 审计失败只记日志，文档已经生成
			s.logger.Warn("Failed to record issued letter", zap.Error(err))
		}
	}

	return path, nil
}

// trigger 触发状态迁移，迁移被拒绝时记日志
func (s *LetterService) trigger(job *state.Job, event string) {
	if err := job.Trigger(event); err != nil {
		s.logger.Error("Failed to transition letter job",
			zap.String("job_id", job.ID().String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// emit 推送进度快照，订阅方消费不及时则丢弃
func (s *LetterService) emit(job *state.Job) {
	select {
	case s.progressCh <- job.Progress():
	default:
	}
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return '-'
		}
	}, s)
}
