package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/fleetguard/internal/config"
	"github.com/langchou/fleetguard/internal/models"
	"github.com/langchou/fleetguard/internal/repository"
	"github.com/langchou/fleetguard/internal/risk"
	"github.com/langchou/fleetguard/internal/warning"
)

// ReportService 看板报表服务：风险标注、KPI 汇总、警告信集合构建
type ReportService struct {
	cfg       *config.Config
	logger    *zap.Logger
	eventRepo *repository.SafetyEventRepository
}

// NewReportService 创建报表服务
func NewReportService(cfg *config.Config, logger *zap.Logger, eventRepo *repository.SafetyEventRepository) *ReportService {
	return &ReportService{
		cfg:       cfg,
		logger:    logger,
		eventRepo: eventRepo,
	}
}

// LabeledEvent 带风险等级标注的安全事件
type LabeledEvent struct {
	models.SafetyEvent
	RiskLevel risk.Level `json:"risk_level"`
}

// Summary 看板 KPI 汇总
type Summary struct {
	Start          string               `json:"start"`
	End            string               `json:"end"`
	TotalEvents    int64                `json:"total_events"`
	SpeedingEvents int64                `json:"speeding_events"`
	ByRiskLevel    map[risk.Level]int64 `json:"by_risk_level"`
	ByEventType    []models.TypeCount   `json:"by_event_type"`
	ByFleetGroup   []models.GroupCount  `json:"by_fleet_group"`
	TopDrivers     []models.DriverCount `json:"top_drivers"`
}

// ListLabeledEvents 查询事件并附加风险等级（等级按需重算，不落库）
func (s *ReportService) ListLabeledEvents(ctx context.Context, f repository.Filter) ([]LabeledEvent, error) {
	events, err := s.eventRepo.ListByRange(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	labeled := make([]LabeledEvent, len(events))
	levels := risk.ClassifyEvents(events)
	for i := range events {
		labeled[i] = LabeledEvent{SafetyEvent: events[i], RiskLevel: levels[i]}
	}
	return labeled, nil
}

// BuildSummary 计算 KPI 汇总
func (s *ReportService) BuildSummary(ctx context.Context, f repository.Filter) (*Summary, error) {
	byType, err := s.eventRepo.CountByEventType(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("summary by event type: %w", err)
	}

	byGroup, err := s.eventRepo.CountByFleetGroup(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("summary by fleet group: %w", err)
	}

	topDrivers, err := s.eventRepo.TopDrivers(ctx, f, 10)
	if err != nil {
		return nil, fmt.Errorf("summary top drivers: %w", err)
	}

	// 风险等级分布只看超速事件，按需重算
	speedingFilter := f
	speedingFilter.EventType = models.EventTypeSpeeding
	speeding, err := s.eventRepo.ListByRange(ctx, speedingFilter)
	if err != nil {
		return nil, fmt.Errorf("summary speeding events: %w", err)
	}

	byRisk := map[risk.Level]int64{
		risk.LevelMedium:  0,
		risk.LevelHigh:    0,
		risk.LevelExtreme: 0,
	}
	for _, level := range risk.ClassifyEvents(speeding) {
		byRisk[level]++
	}

	var total int64
	for _, c := range byType {
		total += c.Count
	}

	return &Summary{
		Start:          f.Start.Format(models.DateOnly),
		End:            f.End.Format(models.DateOnly),
		TotalEvents:    total,
		SpeedingEvents: int64(len(speeding)),
		ByRiskLevel:    byRisk,
		ByEventType:    byType,
		ByFleetGroup:   byGroup,
		TopDrivers:     topDrivers,
	}, nil
}

// BuildWarningLetters 加载超速事件并构建去重后的警告信集合
// threshold <= 0 时使用配置的默认阈值
func (s *ReportService) BuildWarningLetters(ctx context.Context, start, end time.Time, threshold float64) (*warning.LetterSet, error) {
	if threshold <= 0 {
		threshold = s.cfg.OverspeedThreshold
	}

	events, err := s.eventRepo.ListByRange(ctx, repository.Filter{
		Start:     start,
		End:       end,
		EventType: models.EventTypeSpeeding,
	})
	if err != nil {
		return nil, fmt.Errorf("load speeding events: %w", err)
	}

	set, err := warning.BuildIncidents(events, warning.Params{
		Start:     start,
		End:       end,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Built warning letter set",
		zap.Int("total_violations", set.TotalViolations),
		zap.Int("named", len(set.Named)),
		zap.Int("unnamed", len(set.Unnamed)),
		zap.Float64("threshold", threshold),
	)

	return set, nil
}
