package ingest

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/langchou/fleetguard/internal/models"
)

// 导入模板表头（与车载终端平台导出的报表列名对应）
const (
	ColDriverName   = "Driver Name"
	ColDriverID     = "Driver ID"
	ColVehiclePlate = "Vehicle Plate"
	ColFleetGroup   = "Fleet Group"
	ColEventType    = "Event Type"
	ColShiftDate    = "Shift Date"
	ColShift        = "Shift"
	ColStartTime    = "Start Time"
	ColSpeedLimit   = "Speed Limit"
	ColMaxSpeed     = "Max Speed"
	ColOverspeed    = "Overspeed" // 可选，缺失时由 Max Speed - Speed Limit 推导
	ColArea         = "Area"
)

// RequiredColumns 必需列，缺失任意一列则整个上传失败
var RequiredColumns = []string{
	ColDriverName,
	ColVehiclePlate,
	ColFleetGroup,
	ColEventType,
	ColShiftDate,
	ColShift,
	ColStartTime,
	ColSpeedLimit,
	ColMaxSpeed,
}

// SchemaError 表头缺少必需列
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// 班次日期和事件时间支持的解析格式
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"2006-01-02 15:04:05",
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01-02-06 15:04", // excelize 对日期单元格的默认渲染格式
}

// ParseWorkbook 解析上传的 Excel 报表为安全事件列表
// 表头校验失败返回 *SchemaError；单行的脏数据本地降级（数值置空、原始时间字符串保留），不会中断整批。
// 班次日期无法解析的行没有可用的归属日，整行跳过并计入第二个返回值
func ParseWorkbook(r io.Reader) ([]models.SafetyEvent, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, 0, &SchemaError{Missing: RequiredColumns}
	}

	colIndex, missing := matchHeader(rows[0])
	if len(missing) > 0 {
		return nil, 0, &SchemaError{Missing: missing}
	}

	var events []models.SafetyEvent
	var skipped int
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		e, ok := parseRow(row, colIndex)
		if !ok {
			skipped++
			continue
		}
		events = append(events, e)
	}

	return events, skipped, nil
}

// matchHeader 表头按列名匹配（忽略大小写和两端空白），返回列名到下标的映射和缺失列
func matchHeader(header []string) (map[string]int, []string) {
	index := make(map[string]int)
	for i, cell := range header {
		index[strings.ToLower(strings.TrimSpace(cell))] = i
	}

	colIndex := make(map[string]int)
	var missing []string
	for _, col := range append(append([]string{}, RequiredColumns...), ColDriverID, ColOverspeed, ColArea) {
		if i, ok := index[strings.ToLower(col)]; ok {
			colIndex[col] = i
		} else {
			for _, required := range RequiredColumns {
				if required == col {
					missing = append(missing, col)
				}
			}
		}
	}
	sort.Strings(missing)
	return colIndex, missing
}

// parseRow 解析单行，班次日期不可解析时返回 ok=false
func parseRow(row []string, colIndex map[string]int) (models.SafetyEvent, bool) {
	e := models.SafetyEvent{
		DriverName:   cell(row, colIndex, ColDriverName),
		DriverID:     cell(row, colIndex, ColDriverID),
		VehiclePlate: cell(row, colIndex, ColVehiclePlate),
		FleetGroup:   cell(row, colIndex, ColFleetGroup),
		EventType:    cell(row, colIndex, ColEventType),
		Shift:        cell(row, colIndex, ColShift),
		Area:         cell(row, colIndex, ColArea),
		SpeedLimit:   parseFloat(cell(row, colIndex, ColSpeedLimit)),
		MaxSpeed:     parseFloat(cell(row, colIndex, ColMaxSpeed)),
	}

	d, ok := parseDate(cell(row, colIndex, ColShiftDate))
	if !ok {
		return models.SafetyEvent{}, false
	}
	e.ShiftDate = d

	e.StartTimeRaw = cell(row, colIndex, ColStartTime)
	if t, ok := parseTime(e.StartTimeRaw); ok {
		e.StartTime = &t
	}

	e.Overspeed = parseFloat(cell(row, colIndex, ColOverspeed))
	if e.Overspeed == nil && e.MaxSpeed != nil && e.SpeedLimit != nil {
		v := *e.MaxSpeed - *e.SpeedLimit
		e.Overspeed = &v
	}

	return e, true
}

func cell(row []string, colIndex map[string]int, col string) string {
	i, ok := colIndex[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// 班次日期只保留日期部分
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
