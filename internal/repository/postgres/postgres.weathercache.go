// FilePath: internal/repository/postgres/postgres.weathercache.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
)

type WeatherCacheRepo struct {
	PostgresBaseRepo
}

func NewWeatherCacheRepository(db database.DB) (*WeatherCacheRepo, error) {
	repo := &WeatherCacheRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *WeatherCacheRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS weather_cache (
			id BIGSERIAL PRIMARY KEY,
			lat_hash TEXT NOT NULL,
			lng_hash TEXT NOT NULL,
			provider TEXT NOT NULL,
			payload JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_cache_lookup
			ON weather_cache(lat_hash, lng_hash, provider, fetched_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize weather cache schema", err)
		}
	}
	return nil
}

// Insert appends one cache entry. Entries are never updated; concurrent
// identical lookups may produce duplicate rows, which is tolerated.
func (r *WeatherCacheRepo) Insert(ctx context.Context, entry *models.WeatherCacheEntry) error {
	query := `
		INSERT INTO weather_cache (lat_hash, lng_hash, provider, payload, fetched_at)
		VALUES (:lat_hash, :lng_hash, :provider, :payload, :fetched_at)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, entry)
	if err != nil {
		return errors.NewDatabaseError("failed to insert weather cache entry", err)
	}
	return nil
}

// FindFresh returns the most recent entry for the hash pair fetched at or
// after notBefore, or NotFound when the cache has nothing fresh
func (r *WeatherCacheRepo) FindFresh(ctx context.Context, latHash, lngHash, provider string, notBefore time.Time) (*models.WeatherCacheEntry, error) {
	entry := &models.WeatherCacheEntry{}
	query := `
		SELECT * FROM weather_cache
		WHERE lat_hash = $1 AND lng_hash = $2 AND provider = $3 AND fetched_at >= $4
		ORDER BY fetched_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, entry, query, latHash, lngHash, provider, notBefore)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no fresh weather cache entry", err)
		}
		return nil, errors.NewDatabaseError("failed to query weather cache", err)
	}
	return entry, nil
}

// DeleteStale is an operational hook for trimming cache growth; nothing
// schedules it
func (r *WeatherCacheRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.GetDB().ExecContext(ctx, `DELETE FROM weather_cache WHERE fetched_at < $1`, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete stale weather cache entries", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows, nil
}
