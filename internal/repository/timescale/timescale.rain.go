// FilePath: internal/repository/timescale/timescale.rain.go
package timescale

import (
	"context"
	"database/sql"
	"time"

	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type RainReadingRepo struct {
	db database.DB
}

func NewRainReadingRepository(db database.DB) (*RainReadingRepo, error) {
	repo := &RainReadingRepo{db: db}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RainReadingRepo) initializeSchema() error {
	// Create hypertable for rain readings
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rain_readings (
			id TEXT NOT NULL,
			device_id BIGINT NOT NULL,
			rainfall_mm DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`SELECT create_hypertable('rain_readings', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rain_readings_device_timestamp
			ON rain_readings(device_id, timestamp DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize rain readings schema", err)
		}
	}
	return nil
}

func (r *RainReadingRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to begin transaction", err)
	}
	return tx, nil
}

// Insert appends one immutable reading. The id and created_at are
// assigned here when the caller left them empty.
func (r *RainReadingRepo) Insert(ctx context.Context, reading *models.RainReading) error {
	if reading.ID == "" {
		reading.ID = nuts.NID("rr", 12)
	}
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO rain_readings (id, device_id, rainfall_mm, timestamp, created_at)
		VALUES (:id, :device_id, :rainfall_mm, :timestamp, :created_at)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, reading)
	if err != nil {
		return errors.NewDatabaseError("failed to insert rain reading", err)
	}
	return nil
}

// History returns readings in ascending timestamp order. A zero since
// with a positive limit switches to row-limit mode over the most recent
// readings.
func (r *RainReadingRepo) History(ctx context.Context, deviceID int64, since time.Time, limit int) ([]*models.RainReading, error) {
	readings := []*models.RainReading{}

	if since.IsZero() && limit > 0 {
		// latest N rows, then presented oldest-first
		query := `
			SELECT * FROM (
				SELECT * FROM rain_readings
				WHERE device_id = $1
				ORDER BY timestamp DESC
				LIMIT $2
			) recent
			ORDER BY timestamp ASC`
		if err := r.db.GetDB().SelectContext(ctx, &readings, query, deviceID, limit); err != nil {
			return nil, errors.NewDatabaseError("failed to query rain history", err)
		}
		return readings, nil
	}

	query := `
		SELECT * FROM rain_readings
		WHERE device_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC`
	if err := r.db.GetDB().SelectContext(ctx, &readings, query, deviceID, since); err != nil {
		return nil, errors.NewDatabaseError("failed to query rain history", err)
	}
	return readings, nil
}

func (r *RainReadingRepo) Latest(ctx context.Context, deviceID int64) (*models.RainReading, error) {
	reading := &models.RainReading{}
	query := `
		SELECT * FROM rain_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest reading", err)
	}
	return reading, nil
}

// Recent returns the newest readings first, bounded by limit
func (r *RainReadingRepo) Recent(ctx context.Context, deviceID int64, limit int) ([]*models.RainReading, error) {
	readings := []*models.RainReading{}
	query := `
		SELECT * FROM rain_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, deviceID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to query recent readings", err)
	}
	return readings, nil
}

func (r *RainReadingRepo) DeleteByDevice(ctx context.Context, deviceID int64) error {
	_, err := r.db.GetDB().ExecContext(ctx, `DELETE FROM rain_readings WHERE device_id = $1`, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete rain readings", err)
	}
	return nil
}

func (r *RainReadingRepo) DeleteOldData(ctx context.Context, before time.Time) error {
	result, err := r.db.GetDB().ExecContext(ctx, `DELETE FROM rain_readings WHERE timestamp < $1`, before)
	if err != nil {
		return errors.NewDatabaseError("failed to delete old rain readings", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		nuts.L.Infof("[RainReadingRepo] Deleted %d readings older than %v", rows, before)
	}
	return nil
}
