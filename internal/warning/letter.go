package warning

import (
	"strconv"
	"strings"
)

// 信函字段缺省值
const (
	FallbackNA         = "N/A"
	FallbackDriverName = "Unknown Driver"
	FallbackFleetGroup = "Unknown Department"
	FallbackArea       = "Unknown Location"
)

// LetterPayload 单封警告信的扁平字段集，供文档生成方做模板填充
type LetterPayload struct {
	DriverID     string `json:"driver_id"`
	DriverName   string `json:"driver_name"`
	FleetGroup   string `json:"fleet_group"`
	IncidentDate string `json:"incident_date"`
	IncidentTime string `json:"incident_time"`
	Area         string `json:"area"`
	Overspeed    string `json:"overspeed"`
	SpeedLimit   string `json:"speed_limit"`
	Shift        string `json:"shift"`
	MaxSpeed     string `json:"max_speed"`
	VehiclePlate string `json:"vehicle_plate"`
}

// BuildLetterPayload 从去重后的事件生成信函字段
// 全函数：任何字段缺失或时间解析失败都降级为缺省值，单行数据不会中断整批生成
func BuildLetterPayload(in Incident) LetterPayload {
	e := in.Event

	p := LetterPayload{
		DriverID:     orDefault(e.DriverID, FallbackNA),
		DriverName:   orDefault(strings.TrimSpace(e.DriverName), FallbackDriverName),
		FleetGroup:   orDefault(e.FleetGroup, FallbackFleetGroup),
		Area:         orDefault(e.Area, FallbackArea),
		Overspeed:    formatSpeed(e.Overspeed, "0"),
		SpeedLimit:   formatSpeed(e.SpeedLimit, FallbackNA),
		Shift:        e.Shift,
		MaxSpeed:     formatSpeed(e.MaxSpeed, FallbackNA),
		VehiclePlate: orDefault(strings.TrimSpace(e.VehiclePlate), FallbackNA),
	}

	if e.StartTime != nil {
		p.IncidentDate = e.StartTime.Format("2006-01-02")
		p.IncidentTime = e.StartTime.Format("15:04:05")
	} else {
		// 时间戳解析失败时两个字段都回退到原始字符串
		p.IncidentDate = e.StartTimeRaw
		p.IncidentTime = e.StartTimeRaw
	}

	return p
}

// BuildLetterPayloads 批量生成信函字段，具名集合在前
func BuildLetterPayloads(set *LetterSet) []LetterPayload {
	payloads := make([]LetterPayload, 0, set.TotalLetters())
	for _, in := range set.Named {
		payloads = append(payloads, BuildLetterPayload(in))
	}
	for _, in := range set.Unnamed {
		payloads = append(payloads, BuildLetterPayload(in))
	}
	return payloads
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatSpeed(v *float64, def string) string {
	if v == nil {
		return def
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
