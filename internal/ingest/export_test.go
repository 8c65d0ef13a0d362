package ingest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/langchou/fleetguard/internal/models"
	"github.com/langchou/fleetguard/internal/warning"
)

func TestGenerateIncidentWorkbook(t *testing.T) {
	start := time.Date(2024, 1, 1, 14, 30, 5, 0, time.UTC)
	limit, max, over := 60.0, 72.5, 12.5

	set := &warning.LetterSet{
		Named: []warning.Incident{
			{
				DriverName:   "Alice",
				VehiclePlate: "T1",
				Event: models.SafetyEvent{
					DriverID:     "D-100",
					DriverName:   "Alice",
					VehiclePlate: "T1",
					FleetGroup:   "North Pit",
					Shift:        "Day",
					Area:         "Haul Road 3",
					StartTime:    &start,
					SpeedLimit:   &limit,
					MaxSpeed:     &max,
					Overspeed:    &over,
				},
			},
		},
		Unnamed: []warning.Incident{
			{
				VehiclePlate: "T2",
				Event: models.SafetyEvent{
					VehiclePlate: "T2",
					Shift:        "Night",
					StartTimeRaw: "bad-time",
					Overspeed:    &over,
				},
			},
		},
		TotalViolations: 3,
	}

	data, err := GenerateIncidentWorkbook(set)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Warning Letters")
	require.NoError(t, err)
	require.Len(t, rows, 3) // 表头 + 两封信

	assert.Equal(t, IncidentExportHeader, rows[0])

	// 具名司机排在前
	assert.Equal(t, "Alice", rows[1][1])
	assert.Equal(t, "North Pit", rows[1][2])
	assert.Equal(t, "2024-01-01", rows[1][4])

	// 未具名司机降级为缺省值，坏时间戳回退到原始字符串
	assert.Equal(t, warning.FallbackDriverName, rows[2][1])
	assert.Equal(t, "T2", rows[2][3])
	assert.Equal(t, "bad-time", rows[2][4])
}
