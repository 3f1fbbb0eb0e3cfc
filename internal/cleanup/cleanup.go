package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rainwatch/rainhub/internal/models"
	"github.com/rainwatch/rainhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// CleanupService coordinates cascading deletion of a device and its
// owned telemetry
type CleanupService struct {
	devices repository.DeviceRepository
	rain    repository.RainReadingRepository
	images  repository.ImageRepository
	blobs   repository.BlobStore
	events  *nuts.EventEmitter
}

// New creates a new CleanupService
func New(
	devices repository.DeviceRepository,
	rain repository.RainReadingRepository,
	images repository.ImageRepository,
	blobs repository.BlobStore,
) *CleanupService {
	return &CleanupService{
		devices: devices,
		rain:    rain,
		images:  images,
		blobs:   blobs,
		events:  nuts.NewEventEmitter(),
	}
}

// DeleteDevice deletes a device and all its associated data: rain
// readings, image records and their blobs, then the device row itself.
// Blob removal failures are logged but do not abort the cascade; a
// missed blob is an orphan on disk, not an integrity violation.
func (s *CleanupService) DeleteDevice(ctx context.Context, device *models.Device) error {
	if err := s.rain.DeleteByDevice(ctx, device.ID); err != nil {
		return fmt.Errorf("failed to delete rain readings: %w", err)
	}

	paths, err := s.images.DeleteByDevice(ctx, device.ID)
	if err != nil {
		return fmt.Errorf("failed to delete image records: %w", err)
	}
	for _, p := range paths {
		if err := s.blobs.Remove(p); err != nil {
			nuts.L.Errorf("[Cleanup] Failed to remove blob %s: %v", p, err)
		}
	}
	s.events.Emit("images.deleted", device.DeviceKey)

	if err := s.devices.Delete(ctx, device.ID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	s.events.Emit("device.deleted", device.DeviceKey)
	return nil
}

// PruneTelemetry removes rain readings and blobs older than the cutoff.
// Operational hook only; nothing schedules it.
func (s *CleanupService) PruneTelemetry(ctx context.Context, before time.Time) error {
	if err := s.rain.DeleteOldData(ctx, before); err != nil {
		return fmt.Errorf("failed to prune rain readings: %w", err)
	}
	if err := s.blobs.DeleteOldFiles(before); err != nil {
		return fmt.Errorf("failed to prune blobs: %w", err)
	}
	return nil
}

// OnCleanup registers a callback for cleanup events
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, "cleanup_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}
