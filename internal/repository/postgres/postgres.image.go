// FilePath: internal/repository/postgres/postgres.image.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
)

type ImageRepo struct {
	PostgresBaseRepo
}

func NewImageRepository(db database.DB) (*ImageRepo, error) {
	repo := &ImageRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ImageRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS images (
			id BIGSERIAL PRIMARY KEY,
			device_id BIGINT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			file_path TEXT NOT NULL UNIQUE,
			width INT,
			height INT,
			size_kb INT NOT NULL DEFAULT 0,
			timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_device_timestamp
			ON images(device_id, timestamp DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize images schema", err)
		}
	}
	return nil
}

// Insert appends one immutable image metadata record. The blob must
// already be committed under the storage root before this is called.
func (r *ImageRepo) Insert(ctx context.Context, img *models.ImageRecord) error {
	query := `
		INSERT INTO images (device_id, file_path, width, height, size_kb, timestamp, created_at)
		VALUES (:device_id, :file_path, :width, :height, :size_kb, :timestamp, :created_at)
		RETURNING id`

	rows, err := r.db.GetDB().NamedQueryContext(ctx, query, img)
	if err != nil {
		return errors.NewDatabaseError("failed to insert image record", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&img.ID); err != nil {
			return errors.NewDatabaseError("failed to read created image id", err)
		}
	}
	return nil
}

func (r *ImageRepo) Latest(ctx context.Context, deviceID int64) (*models.ImageRecord, error) {
	img := &models.ImageRecord{}
	query := `
		SELECT * FROM images
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, img, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no images for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest image", err)
	}
	return img, nil
}

func (r *ImageRepo) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*models.ImageRecord, error) {
	images := []*models.ImageRecord{}
	query := `
		SELECT * FROM images
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	err := r.db.GetDB().SelectContext(ctx, &images, query, deviceID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list images", err)
	}
	return images, nil
}

// DeleteByDevice removes all image rows for a device and returns their
// storage paths so the caller can clean up the blobs
func (r *ImageRepo) DeleteByDevice(ctx context.Context, deviceID int64) ([]string, error) {
	paths := []string{}
	query := `DELETE FROM images WHERE device_id = $1 RETURNING file_path`

	err := r.db.GetDB().SelectContext(ctx, &paths, query, deviceID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to delete image records", err)
	}
	return paths, nil
}
