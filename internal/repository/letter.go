package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/langchou/fleetguard/internal/warning"
)

// IssuedLetter 已签发警告信的审计记录
type IssuedLetter struct {
	ID           int64     `json:"id" db:"id"`
	JobID        uuid.UUID `json:"job_id" db:"job_id"`
	DocumentPath string    `json:"document_path" db:"document_path"`
	IssuedAt     time.Time `json:"issued_at" db:"issued_at"`
	warning.LetterPayload
}

// WarningLetterRepository 警告信审计仓库
type WarningLetterRepository struct {
	db *DB
}

// NewWarningLetterRepository 创建警告信仓库
func NewWarningLetterRepository(db *DB) *WarningLetterRepository {
	return &WarningLetterRepository{db: db}
}

// Record 记录一封已生成的警告信
func (r *WarningLetterRepository) Record(ctx context.Context, jobID uuid.UUID, p warning.LetterPayload, documentPath string) error {
	query := `
		INSERT INTO warning_letters (job_id, driver_id, driver_name, fleet_group, vehicle_plate,
			incident_date, incident_time, shift, area, overspeed, speed_limit, max_speed, document_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		jobID,
		p.DriverID,
		p.DriverName,
		p.FleetGroup,
		p.VehiclePlate,
		p.IncidentDate,
		p.IncidentTime,
		p.Shift,
		p.Area,
		p.Overspeed,
		p.SpeedLimit,
		p.MaxSpeed,
		documentPath,
	)
	if err != nil {
		return fmt.Errorf("insert warning letter: %w", err)
	}
	return nil
}

// ListByJob 查询一次生成任务签发的全部警告信
func (r *WarningLetterRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]IssuedLetter, error) {
	query := `
		SELECT id, job_id, driver_id, driver_name, fleet_group, vehicle_plate,
			incident_date, incident_time, shift, area, overspeed, speed_limit, max_speed,
			document_path, issued_at
		FROM warning_letters WHERE job_id = $1 ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list warning letters: %w", err)
	}
	defer rows.Close()

	var letters []IssuedLetter
	for rows.Next() {
		var l IssuedLetter
		err := rows.Scan(
			&l.ID,
			&l.JobID,
			&l.DriverID,
			&l.DriverName,
			&l.FleetGroup,
			&l.VehiclePlate,
			&l.IncidentDate,
			&l.IncidentTime,
			&l.Shift,
			&l.Area,
			&l.Overspeed,
			&l.SpeedLimit,
			&l.MaxSpeed,
			&l.DocumentPath,
			&l.IssuedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan warning letter: %w", err)
		}
		letters = append(letters, l)
	}
	return letters, nil
}

// CountByJob 统计一次任务签发的警告信数量
func (r *WarningLetterRepository) CountByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM warning_letters WHERE job_id = $1`, jobID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count warning letters: %w", err)
	}
	return count, nil
}
