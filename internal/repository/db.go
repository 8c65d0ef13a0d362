package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 连接池配置
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateSafetyEvents,
		migrationCreateWarningLetters,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreateSafetyEvents = `
CREATE TABLE IF NOT EXISTS safety_events (
    id BIGSERIAL PRIMARY KEY,
    driver_name VARCHAR(255) NOT NULL DEFAULT '',
    driver_id VARCHAR(64) NOT NULL DEFAULT '',
    vehicle_plate VARCHAR(32) NOT NULL DEFAULT '',
    fleet_group VARCHAR(255) NOT NULL DEFAULT '',
    event_type VARCHAR(64) NOT NULL,
    shift_date DATE NOT NULL,
    shift VARCHAR(16) NOT NULL DEFAULT '',
    start_time TIMESTAMP WITH TIME ZONE,
    start_time_raw VARCHAR(64) NOT NULL DEFAULT '',
    speed_limit DOUBLE PRECISION,
    max_speed DOUBLE PRECISION,
    overspeed DOUBLE PRECISION,
    area VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_safety_events_shift_date ON safety_events(shift_date);
CREATE INDEX IF NOT EXISTS idx_safety_events_event_type ON safety_events(event_type);
CREATE INDEX IF NOT EXISTS idx_safety_events_fleet_group ON safety_events(fleet_group);
`

const migrationCreateWarningLetters = `
CREATE TABLE IF NOT EXISTS warning_letters (
    id BIGSERIAL PRIMARY KEY,
    job_id UUID NOT NULL,
    driver_id VARCHAR(64) NOT NULL DEFAULT '',
    driver_name VARCHAR(255) NOT NULL DEFAULT '',
    fleet_group VARCHAR(255) NOT NULL DEFAULT '',
    vehicle_plate VARCHAR(32) NOT NULL DEFAULT '',
    incident_date VARCHAR(64) NOT NULL DEFAULT '',
    incident_time VARCHAR(64) NOT NULL DEFAULT '',
    shift VARCHAR(16) NOT NULL DEFAULT '',
    area VARCHAR(255) NOT NULL DEFAULT '',
    overspeed VARCHAR(32) NOT NULL DEFAULT '',
    speed_limit VARCHAR(32) NOT NULL DEFAULT '',
    max_speed VARCHAR(32) NOT NULL DEFAULT '',
    document_path VARCHAR(512) NOT NULL DEFAULT '',
    issued_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_warning_letters_job_id ON warning_letters(job_id);
CREATE INDEX IF NOT EXISTS idx_warning_letters_driver_name ON warning_letters(driver_name);
`
