package warning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/langchou/fleetguard/internal/models"
)

func TestBuildLetterPayload_FullEvent(t *testing.T) {
	start := time.Date(2024, 1, 1, 14, 30, 5, 0, time.UTC)
	limit, max, over := 60.0, 72.5, 12.5

	payload := BuildLetterPayload(Incident{
		Event: models.SafetyEvent{
			DriverID:     "D-100",
			DriverName:   "Alice",
			VehiclePlate: "T1",
			FleetGroup:   "North Pit",
			Shift:        "Day",
			Area:         "Haul Road 3",
			StartTime:    &start,
			StartTimeRaw: "2024-01-01 14:30:05",
			SpeedLimit:   &limit,
			MaxSpeed:     &max,
			Overspeed:    &over,
		},
	})

	assert.Equal(t, "D-100", payload.DriverID)
	assert.Equal(t, "Alice", payload.DriverName)
	assert.Equal(t, "North Pit", payload.FleetGroup)
	assert.Equal(t, "T1", payload.VehiclePlate)
	assert.Equal(t, "2024-01-01", payload.IncidentDate)
	assert.Equal(t, "14:30:05", payload.IncidentTime)
	assert.Equal(t, "Haul Road 3", payload.Area)
	assert.Equal(t, "60", payload.SpeedLimit)
	assert.Equal(t, "72.5", payload.MaxSpeed)
	assert.Equal(t, "12.5", payload.Overspeed)
}

func TestBuildLetterPayload_Defaults(t *testing.T) {
	payload := BuildLetterPayload(Incident{
		Event: models.SafetyEvent{
			DriverName:   "   ",
			VehiclePlate: "",
		},
	})

	assert.Equal(t, FallbackNA, payload.DriverID)
	assert.Equal(t, FallbackDriverName, payload.DriverName)
	assert.Equal(t, FallbackFleetGroup, payload.FleetGroup)
	assert.Equal(t, FallbackArea, payload.Area)
	assert.Equal(t, FallbackNA, payload.SpeedLimit)
	assert.Equal(t, FallbackNA, payload.MaxSpeed)
	assert.Equal(t, FallbackNA, payload.VehiclePlate)
	assert.Equal(t, "0", payload.Overspeed)
}

func TestBuildLetterPayload_UnparseableStartTime(t *testing.T) {
	// 时间解析失败时两个字段都回退到原始字符串，而不是报错
	payload := BuildLetterPayload(Incident{
		Event: models.SafetyEvent{
			DriverName:   "Alice",
			StartTime:    nil,
			StartTimeRaw: "not-a-timestamp",
		},
	})

	assert.Equal(t, "not-a-timestamp", payload.IncidentDate)
	assert.Equal(t, "not-a-timestamp", payload.IncidentTime)
}

func TestBuildLetterPayloads_NamedFirst(t *testing.T) {
	set := &LetterSet{
		Named: []Incident{
			{Event: models.SafetyEvent{DriverName: "Alice"}},
		},
		Unnamed: []Incident{
			{Event: models.SafetyEvent{VehiclePlate: "T2"}},
		},
	}

	payloads := BuildLetterPayloads(set)

	assert.Len(t, payloads, 2)
	assert.Equal(t, "Alice", payloads[0].DriverName)
	assert.Equal(t, FallbackDriverName, payloads[1].DriverName)
	assert.Equal(t, "T2", payloads[1].VehiclePlate)
}
