// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DeviceRepository defines the interface for device identity operations
type DeviceRepository interface {
	database.Repository
	// Upsert atomically creates or updates a device by its external key.
	// Safe under concurrent invocation for the same key.
	Upsert(ctx context.Context, input models.DeviceUpsert) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	FindByRef(ctx context.Context, ref models.DeviceRef) (*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int) ([]*models.Device, error)
}

// RainReadingRepository defines the interface for rainfall time-series data
type RainReadingRepository interface {
	database.Repository
	Insert(ctx context.Context, reading *models.RainReading) error
	History(ctx context.Context, deviceID int64, since time.Time, limit int) ([]*models.RainReading, error)
	Latest(ctx context.Context, deviceID int64) (*models.RainReading, error)
	Recent(ctx context.Context, deviceID int64, limit int) ([]*models.RainReading, error)
	DeleteByDevice(ctx context.Context, deviceID int64) error
	DeleteOldData(ctx context.Context, before time.Time) error
}

// ImageRepository defines the interface for image metadata records
type ImageRepository interface {
	database.Repository
	Insert(ctx context.Context, img *models.ImageRecord) error
	Latest(ctx context.Context, deviceID int64) (*models.ImageRecord, error)
	ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*models.ImageRecord, error)
	DeleteByDevice(ctx context.Context, deviceID int64) ([]string, error)
}

// WeatherCacheRepository defines the interface for memoized weather lookups
type WeatherCacheRepository interface {
	database.Repository
	Insert(ctx context.Context, entry *models.WeatherCacheEntry) error
	FindFresh(ctx context.Context, latHash, lngHash, provider string, notBefore time.Time) (*models.WeatherCacheEntry, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// BlobStore defines the interface for device image blob placement
type BlobStore interface {
	// Place writes the blob under the current year-month bucket and
	// returns the absolute path plus the forward-slash public path.
	Place(deviceKey string, src io.Reader, originalFilename string) (absPath string, publicPath string, err error)
	Remove(publicPath string) error
	DeleteOldFiles(before time.Time) error
	BasePath() string
}
