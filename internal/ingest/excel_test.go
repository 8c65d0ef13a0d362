package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/langchou/fleetguard/internal/models"
)

// buildWorkbook 构造测试用工作簿
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

var testHeader = []interface{}{
	"Driver Name", "Driver ID", "Vehicle Plate", "Fleet Group", "Event Type",
	"Shift Date", "Shift", "Start Time", "Speed Limit", "Max Speed", "Area",
}

func TestParseWorkbook_Basic(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		testHeader,
		{"Alice", "D-100", "T1", "North Pit", "Speeding",
			"2024-01-01", "Day", "2024-01-01 14:30:05", "60", "72.5", "Haul Road 3"},
	})

	events, skipped, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Zero(t, skipped)

	e := events[0]
	assert.Equal(t, "Alice", e.DriverName)
	assert.Equal(t, "D-100", e.DriverID)
	assert.Equal(t, "T1", e.VehiclePlate)
	assert.Equal(t, "North Pit", e.FleetGroup)
	assert.Equal(t, models.EventTypeSpeeding, e.EventType)
	assert.Equal(t, "2024-01-01", e.ShiftDate.Format(models.DateOnly))
	assert.Equal(t, "Day", e.Shift)
	require.NotNil(t, e.StartTime)
	assert.Equal(t, "14:30:05", e.StartTime.Format("15:04:05"))
	require.NotNil(t, e.SpeedLimit)
	assert.Equal(t, 60.0, *e.SpeedLimit)
	require.NotNil(t, e.MaxSpeed)
	assert.Equal(t, 72.5, *e.MaxSpeed)
	// Overspeed 列缺失时由 Max Speed - Speed Limit 推导
	require.NotNil(t, e.Overspeed)
	assert.Equal(t, 12.5, *e.Overspeed)
	assert.Equal(t, "Haul Road 3", e.Area)
}

func TestParseWorkbook_ExplicitOverspeedColumn(t *testing.T) {
	header := append(append([]interface{}{}, testHeader...), "Overspeed")
	r := buildWorkbook(t, [][]interface{}{
		header,
		{"Alice", "", "T1", "", "Speeding", "2024-01-01", "Day", "", "60", "72.5", "", "15"},
	})

	events, _, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Overspeed)
	assert.Equal(t, 15.0, *events[0].Overspeed)
}

func TestParseWorkbook_MissingColumns(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"Driver Name", "Driver ID", "Event Type", "Shift Date"},
		{"Alice", "D-100", "Speeding", "2024-01-01"},
	})

	_, _, err := ParseWorkbook(r)
	require.Error(t, err)

	schemaErr, ok := err.(*SchemaError)
	require.True(t, ok, "expected *SchemaError, got %T", err)
	assert.ElementsMatch(t, []string{
		ColVehiclePlate, ColFleetGroup, ColShift, ColStartTime, ColSpeedLimit, ColMaxSpeed,
	}, schemaErr.Missing)
	assert.Contains(t, schemaErr.Error(), ColVehiclePlate)
}

func TestParseWorkbook_HeaderCaseInsensitive(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"driver name", "DRIVER ID", " Vehicle Plate ", "fleet group", "event type",
			"shift date", "SHIFT", "start time", "speed limit", "max speed", "area"},
		{"Alice", "D-100", "T1", "North Pit", "Speeding",
			"2024-01-01", "Day", "2024-01-01 14:30:05", "60", "72.5", ""},
	})

	events, _, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "T1", events[0].VehiclePlate)
}

func TestParseWorkbook_MalformedRowDegrades(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		testHeader,
		{"Bob", "", "T2", "", "Speeding", "2024-01-05", "Night", "garbage-time", "abc", "xyz", ""},
	})

	events, skipped, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Zero(t, skipped)

	e := events[0]
	// 脏数据本地降级：数值置空，原始时间字符串保留供信函回退
	assert.Nil(t, e.SpeedLimit)
	assert.Nil(t, e.MaxSpeed)
	assert.Nil(t, e.Overspeed)
	assert.Nil(t, e.StartTime)
	assert.Equal(t, "garbage-time", e.StartTimeRaw)
	assert.Equal(t, "2024-01-05", e.ShiftDate.Format(models.DateOnly))
}

func TestParseWorkbook_SkipsUnparseableShiftDate(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		testHeader,
		{"Alice", "", "T1", "", "Speeding", "2024-01-01", "Day", "", "60", "70", ""},
		{"Bob", "", "T2", "", "Speeding", "bad-date", "Night", "", "60", "80", ""},
		{"Carol", "", "T3", "", "Speeding", "", "Day", "", "60", "75", ""},
	})

	events, skipped, err := ParseWorkbook(r)
	require.NoError(t, err)

	// 班次日期无法解析的行没有可归属的班次日，整行跳过并计数
	require.Len(t, events, 1)
	assert.Equal(t, "Alice", events[0].DriverName)
	assert.Equal(t, 2, skipped)
}

func TestParseWorkbook_SkipsBlankRows(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		testHeader,
		{"Alice", "", "T1", "", "Speeding", "2024-01-01", "Day", "", "60", "70", ""},
		{"", "", "", "", "", "", "", "", "", "", ""},
		{"Bob", "", "T2", "", "Speeding", "2024-01-02", "Day", "", "60", "80", ""},
	})

	events, skipped, err := ParseWorkbook(r)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Zero(t, skipped)
}
