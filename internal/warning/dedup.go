package warning

import (
	"fmt"
	"strings"
	"time"

	"github.com/langchou/fleetguard/internal/models"
)

// DefaultThreshold 默认的警告信超速阈值 (km/h)
const DefaultThreshold = 6.0

// Params 警告信筛选参数（日期区间为闭区间）
type Params struct {
	Start     time.Time
	End       time.Time
	Threshold float64
}

// Incident 一封警告信对应的去重后事件
// 具名司机按 (司机, 日期) 去重，未识别司机按 (车牌, 日期, 班次) 去重
type Incident struct {
	DriverName   string             `json:"driver_name,omitempty"`
	VehiclePlate string             `json:"vehicle_plate"`
	ShiftDate    time.Time          `json:"shift_date"`
	Shift        string             `json:"shift,omitempty"`
	Event        models.SafetyEvent `json:"event"` // 该分组的代表事件（首次出现）
}

// LetterSet 去重结果：两个互斥的警告信集合及汇总计数
type LetterSet struct {
	Named           []Incident `json:"named"`
	Unnamed         []Incident `json:"unnamed"`
	TotalViolations int        `json:"total_violations"` // 去重前的达标违规总数
}

// TotalLetters 警告信总数
func (s *LetterSet) TotalLetters() int {
	return len(s.Named) + len(s.Unnamed)
}

// BuildIncidents 构建警告信事件集合
// 单遍扫描：过滤 -> 按司机是否具名分流 -> 各自按键去重（保留首次出现的代表事件）
// 不修改输入切片，相同输入必然产生相同结果
func BuildIncidents(events []models.SafetyEvent, p Params) (*LetterSet, error) {
	if p.End.Before(p.Start) {
		return nil, fmt.Errorf("invalid date range: end %s before start %s",
			p.End.Format(models.DateOnly), p.Start.Format(models.DateOnly))
	}

	set := &LetterSet{}
	seenNamed := make(map[string]bool)
	seenUnnamed := make(map[string]bool)

	for i := range events {
		e := &events[i]
		if !inRange(e.ShiftDate, p.Start, p.End) {
			continue
		}
		if e.Overspeed == nil || *e.Overspeed < p.Threshold {
			continue
		}
		set.TotalViolations++

		driver := strings.TrimSpace(e.DriverName)
		plate := strings.TrimSpace(e.VehiclePlate)

		if driver != "" {
			key := driver + "|" + e.ShiftDateKey()
			if seenNamed[key] {
				continue
			}
			seenNamed[key] = true
			set.Named = append(set.Named, Incident{
				DriverName:   driver,
				VehiclePlate: plate,
				ShiftDate:    e.ShiftDate,
				Shift:        e.Shift,
				Event:        *e,
			})
		} else {
			key := plate + "|" + e.ShiftDateKey() + "|" + e.Shift
			if seenUnnamed[key] {
				continue
			}
			seenUnnamed[key] = true
			set.Unnamed = append(set.Unnamed, Incident{
				VehiclePlate: plate,
				ShiftDate:    e.ShiftDate,
				Shift:        e.Shift,
				Event:        *e,
			})
		}
	}

	return set, nil
}

// inRange 判断日期是否落在闭区间 [start, end] 内（只比较日期部分）
func inRange(d, start, end time.Time) bool {
	day := d.Format(models.DateOnly)
	return day >= start.Format(models.DateOnly) && day <= end.Format(models.DateOnly)
}
