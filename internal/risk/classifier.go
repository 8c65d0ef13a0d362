package risk

import (
	"github.com/langchou/fleetguard/internal/models"
)

// Level 超速风险等级
type Level string

const (
	LevelMedium  Level = "Medium"
	LevelHigh    Level = "High"
	LevelExtreme Level = "Extreme"
)

// 分级阈值：超出限速 >= 20 为 Extreme，>= 10 为 High，其余为 Medium
const (
	ThresholdExtreme = 20.0
	ThresholdHigh    = 10.0
)

// Rank 返回等级的序号（Medium < High < Extreme），用于排序
func (l Level) Rank() int {
	switch l {
	case LevelExtreme:
		return 2
	case LevelHigh:
		return 1
	default:
		return 0
	}
}

// Classify 根据超速幅度计算风险等级
// 全函数：nil、NaN、负值等一律落到 Medium，不会失败
func Classify(overspeed *float64) Level {
	if overspeed == nil {
		return LevelMedium
	}
	switch {
	case *overspeed >= ThresholdExtreme:
		return LevelExtreme
	case *overspeed >= ThresholdHigh:
		return LevelHigh
	default:
		// NaN 的所有比较均为 false，同样落到这里
		return LevelMedium
	}
}

// ClassifyEvents 批量分级，逐行独立计算，保持输入顺序
func ClassifyEvents(events []models.SafetyEvent) []Level {
	levels := make([]Level, len(events))
	for i := range events {
		levels[i] = Classify(events[i].Overspeed)
	}
	return levels
}
