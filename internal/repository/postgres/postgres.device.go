// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
)

const pqUniqueViolation = "23505"

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id BIGSERIAL PRIMARY KEY,
			device_key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_updated_at ON devices(updated_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize devices schema", err)
		}
	}
	return nil
}

// Upsert atomically creates or updates a device keyed on its external
// device key. The ON CONFLICT clause is the sole guard against duplicate
// rows under concurrent heartbeats for the same key; nil fields leave the
// stored value untouched, while is_online and last_seen are always
// stamped.
func (r *DeviceRepo) Upsert(ctx context.Context, input models.DeviceUpsert) (*models.Device, error) {
	device := &models.Device{}
	query := `
		INSERT INTO devices (device_key, name, latitude, longitude, is_online, last_seen, created_at, updated_at)
		VALUES ($1, COALESCE($2, $1), COALESCE($3, 0), COALESCE($4, 0), TRUE, NOW(), NOW(), NOW())
		ON CONFLICT (device_key) DO UPDATE SET
			name = COALESCE($2, devices.name),
			latitude = COALESCE($3, devices.latitude),
			longitude = COALESCE($4, devices.longitude),
			is_online = TRUE,
			last_seen = NOW(),
			updated_at = NOW()
		RETURNING *`

	err := r.db.GetDB().GetContext(ctx, device, query,
		input.DeviceKey, input.Name, input.Latitude, input.Longitude)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to upsert device", err)
	}
	return device, nil
}

// Create inserts a device explicitly (admin path); duplicate keys are
// reported as a conflict rather than a generic database error
func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (device_key, name, latitude, longitude, is_online, last_seen, created_at, updated_at)
		VALUES (:device_key, :name, :latitude, :longitude, :is_online, :last_seen, :created_at, :updated_at)
		RETURNING id`

	rows, err := r.db.GetDB().NamedQueryContext(ctx, query, device)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return errors.NewConflictError("device key already exists", err)
		}
		return errors.NewDatabaseError("failed to create device", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&device.ID); err != nil {
			return errors.NewDatabaseError("failed to read created device id", err)
		}
	}
	return nil
}

func (r *DeviceRepo) FindByRef(ctx context.Context, ref models.DeviceRef) (*models.Device, error) {
	device := &models.Device{}
	var err error

	switch ref.Kind {
	case models.RefByID:
		err = r.db.GetDB().GetContext(ctx, device, `SELECT * FROM devices WHERE id = $1`, ref.ID)
	default:
		err = r.db.GetDB().GetContext(ctx, device, `SELECT * FROM devices WHERE device_key = $1`, ref.Key)
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	device.UpdatedAt = time.Now()
	query := `
		UPDATE devices SET
			name = :name,
			latitude = :latitude,
			longitude = :longitude,
			is_online = :is_online,
			last_seen = :last_seen,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *DeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.GetDB().ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}
