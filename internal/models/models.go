package models

import (
	"time"
)

// SafetyEvent 车载终端上报的安全事件记录（一行原始数据）
type SafetyEvent struct {
	ID           int64      `json:"id" db:"id"`
	DriverName   string     `json:"driver_name" db:"driver_name"`     // 可能为空（未识别司机）
	DriverID     string     `json:"driver_id,omitempty" db:"driver_id"`
	VehiclePlate string     `json:"vehicle_plate" db:"vehicle_plate"`
	FleetGroup   string     `json:"fleet_group" db:"fleet_group"`     // 车辆所属车队/部门
	EventType    string     `json:"event_type" db:"event_type"`       // Speeding, Phone, Yawn, ...
	ShiftDate    time.Time  `json:"shift_date" db:"shift_date"`       // 班次日期（只取日期部分）
	Shift        string     `json:"shift" db:"shift"`                 // Day / Night
	StartTime    *time.Time `json:"start_time,omitempty" db:"start_time"`
	StartTimeRaw string     `json:"start_time_raw,omitempty" db:"start_time_raw"` // 原始字符串，解析失败时信函仍可引用
	SpeedLimit   *float64   `json:"speed_limit,omitempty" db:"speed_limit"`       // km/h
	MaxSpeed     *float64   `json:"max_speed,omitempty" db:"max_speed"`           // km/h
	// Overspeed = MaxSpeed - SpeedLimit，仅对 Speeding 事件有意义
	Overspeed *float64 `json:"overspeed,omitempty" db:"overspeed"`
	Area      string   `json:"area,omitempty" db:"area"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EventTypeSpeeding 超速事件类型标签
const EventTypeSpeeding = "Speeding"

// DateOnly 班次日期的统一格式
const DateOnly = "2006-01-02"

// ShiftDateKey 返回用于分组的日期字符串
func (e *SafetyEvent) ShiftDateKey() string {
	return e.ShiftDate.Format(DateOnly)
}

// TypeCount 按事件类型的计数
type TypeCount struct {
	EventType string `json:"event_type" db:"event_type"`
	Count     int64  `json:"count" db:"count"`
}

// GroupCount 按车队分组的计数
type GroupCount struct {
	FleetGroup string `json:"fleet_group" db:"fleet_group"`
	Count      int64  `json:"count" db:"count"`
}

// DriverCount 按司机的计数（用于 Top 司机榜）
type DriverCount struct {
	DriverName string `json:"driver_name" db:"driver_name"`
	Count      int64  `json:"count" db:"count"`
}
