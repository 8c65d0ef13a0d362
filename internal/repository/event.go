package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fleetguard/internal/models"
)

// SafetyEventRepository 安全事件数据仓库
type SafetyEventRepository struct {
	db *DB
}

// NewSafetyEventRepository 创建安全事件仓库
func NewSafetyEventRepository(db *DB) *SafetyEventRepository {
	return &SafetyEventRepository{db: db}
}

// BulkInsert 批量写入安全事件（Excel 上传路径），使用 COPY 协议
func (r *SafetyEventRepository) BulkInsert(ctx context.Context, events []models.SafetyEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([][]interface{}, 0, len(events))
	for i := range events {
		e := &events[i]
		rows = append(rows, []interface{}{
			e.DriverName,
			e.DriverID,
			e.VehiclePlate,
			e.FleetGroup,
			e.EventType,
			e.ShiftDate,
			e.Shift,
			e.StartTime,
			e.StartTimeRaw,
			e.SpeedLimit,
			e.MaxSpeed,
			e.Overspeed,
			e.Area,
		})
	}

	count, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"safety_events"},
		[]string{
			"driver_name", "driver_id", "vehicle_plate", "fleet_group",
			"event_type", "shift_date", "shift", "start_time", "start_time_raw",
			"speed_limit", "max_speed", "overspeed", "area",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy safety events: %w", err)
	}
	return count, nil
}

// Filter 事件查询过滤条件，空字符串表示不过滤
type Filter struct {
	Start      time.Time
	End        time.Time
	FleetGroup string
	EventType  string
}

const eventColumns = `id, driver_name, driver_id, vehicle_plate, fleet_group, event_type,
	shift_date, shift, start_time, start_time_raw, speed_limit, max_speed, overspeed, area, created_at`

// ListByRange 按日期区间（闭区间）查询事件，可选按车队和事件类型过滤
func (r *SafetyEventRepository) ListByRange(ctx context.Context, f Filter) ([]models.SafetyEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM safety_events
		WHERE shift_date >= $1 AND shift_date <= $2
		  AND ($3 = '' OR fleet_group = $3)
		  AND ($4 = '' OR event_type = $4)
		ORDER BY shift_date, start_time NULLS LAST, id
	`
	rows, err := r.db.Pool.Query(ctx, query, f.Start, f.End, f.FleetGroup, f.EventType)
	if err != nil {
		return nil, fmt.Errorf("list safety events: %w", err)
	}
	defer rows.Close()

	var events []models.SafetyEvent
	for rows.Next() {
		var e models.SafetyEvent
		err := rows.Scan(
			&e.ID,
			&e.DriverName,
			&e.DriverID,
			&e.VehiclePlate,
			&e.FleetGroup,
			&e.EventType,
			&e.ShiftDate,
			&e.Shift,
			&e.StartTime,
			&e.StartTimeRaw,
			&e.SpeedLimit,
			&e.MaxSpeed,
			&e.Overspeed,
			&e.Area,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan safety event: %w", err)
		}
		events = append(events, e)
	}

	return events, nil
}

// CountByEventType 按事件类型统计
func (r *SafetyEventRepository) CountByEventType(ctx context.Context, f Filter) ([]models.TypeCount, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM safety_events
		WHERE shift_date >= $1 AND shift_date <= $2
		  AND ($3 = '' OR fleet_group = $3)
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, f.Start, f.End, f.FleetGroup)
	if err != nil {
		return nil, fmt.Errorf("count by event type: %w", err)
	}
	defer rows.Close()

	var counts []models.TypeCount
	for rows.Next() {
		var c models.TypeCount
		if err := rows.Scan(&c.EventType, &c.Count); err != nil {
			return nil, fmt.Errorf("scan event type count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, nil
}

// CountByFleetGroup 按车队统计
func (r *SafetyEventRepository) CountByFleetGroup(ctx context.Context, f Filter) ([]models.GroupCount, error) {
	query := `
		SELECT COALESCE(NULLIF(fleet_group, ''), 'Unknown Department'), COUNT(*)
		FROM safety_events
		WHERE shift_date >= $1 AND shift_date <= $2
		  AND ($3 = '' OR event_type = $3)
		GROUP BY 1 ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, f.Start, f.End, f.EventType)
	if err != nil {
		return nil, fmt.Errorf("count by fleet group: %w", err)
	}
	defer rows.Close()

	var counts []models.GroupCount
	for rows.Next() {
		var c models.GroupCount
		if err := rows.Scan(&c.FleetGroup, &c.Count); err != nil {
			return nil, fmt.Errorf("scan fleet group count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, nil
}

// TopDrivers 违规次数最多的具名司机
func (r *SafetyEventRepository) TopDrivers(ctx context.Context, f Filter, limit int) ([]models.DriverCount, error) {
	query := `
		SELECT TRIM(driver_name), COUNT(*)
		FROM safety_events
		WHERE shift_date >= $1 AND shift_date <= $2
		  AND TRIM(driver_name) <> ''
		  AND ($3 = '' OR event_type = $3)
		GROUP BY 1 ORDER BY COUNT(*) DESC LIMIT $4
	`
	rows, err := r.db.Pool.Query(ctx, query, f.Start, f.End, f.EventType, limit)
	if err != nil {
		return nil, fmt.Errorf("top drivers: %w", err)
	}
	defer rows.Close()

	var counts []models.DriverCount
	for rows.Next() {
		var c models.DriverCount
		if err := rows.Scan(&c.DriverName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan driver count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, nil
}
