// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"
	"time"

	"github.com/itsatony/struccy"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/events"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	detailHistoryLimit = 50
	maxImageListLimit  = 500
)

// ListDeviceSummaries returns all devices with their most recent rain
// reading and image attached
func (s *HubService) ListDeviceSummaries(ctx context.Context, offset, limit int) ([]*models.DeviceSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	devices, err := s.Devices.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.DeviceSummary, 0, len(devices))
	for _, device := range devices {
		summary := &models.DeviceSummary{Device: device}

		if latest, err := s.Rain.Latest(ctx, device.ID); err == nil {
			summary.LatestRain = latest
		} else if !errors.IsNotFound(err) {
			nuts.L.Warnf("[DeviceService] Failed to get latest reading for device %d: %v", device.ID, err)
		}

		if latest, err := s.Images.Latest(ctx, device.ID); err == nil {
			summary.LatestImg = latest
		} else if !errors.IsNotFound(err) {
			nuts.L.Warnf("[DeviceService] Failed to get latest image for device %d: %v", device.ID, err)
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetDeviceDetail returns one device with bounded recent history
func (s *HubService) GetDeviceDetail(ctx context.Context, ref models.DeviceRef) (*models.DeviceDetail, error) {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	rains, err := s.Rain.Recent(ctx, device.ID, detailHistoryLimit)
	if err != nil {
		return nil, err
	}
	images, err := s.Images.ListByDevice(ctx, device.ID, detailHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &models.DeviceDetail{Device: device, Rains: rains, Images: images}, nil
}

// RainHistory resolves the filter into a time window or row limit and
// returns readings in ascending timestamp order
func (s *HubService) RainHistory(ctx context.Context, ref models.DeviceRef, filters models.RainHistoryFilters) ([]*models.RainReading, error) {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	since, limit := filters.Window(time.Now())
	return s.Rain.History(ctx, device.ID, since, limit)
}

// DeviceImages lists a device's images, newest first, with a capped limit
func (s *HubService) DeviceImages(ctx context.Context, ref models.DeviceRef, limit int) ([]*models.ImageRecord, error) {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}
	if limit > maxImageListLimit {
		limit = maxImageListLimit
	}
	return s.Images.ListByDevice(ctx, device.ID, limit)
}

// LatestImage returns a device's most recent image record
func (s *HubService) LatestImage(ctx context.Context, ref models.DeviceRef) (*models.ImageRecord, error) {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.Images.Latest(ctx, device.ID)
}

// AdminCreateDevice creates a device record explicitly, without the
// heartbeat upsert path
func (s *HubService) AdminCreateDevice(ctx context.Context, device *models.Device) error {
	if device.DeviceKey == "" {
		return errors.NewValidationError("device_id is required", nil)
	}
	if device.Name == "" {
		return errors.NewValidationError("name is required", nil)
	}

	now := time.Now()
	device.LastSeen = now
	device.CreatedAt = now
	device.UpdatedAt = now

	nuts.L.Infof("[DeviceService] Creating device %s", device.DeviceKey)
	return s.Devices.Create(ctx, device)
}

// AdminUpdateDevice applies a partial update with role-based field
// access: only fields writable by the caller's roles are merged onto the
// stored record
func (s *HubService) AdminUpdateDevice(ctx context.Context, ref models.DeviceRef, patch *models.Device, roles []string) (*models.Device, error) {
	existing, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	updatedFields, _, err := struccy.UpdateStructFields(existing, patch, roles, true, true)
	if err != nil {
		return nil, errors.NewAuthorizationError("unauthorized field update", err)
	}

	nuts.L.Infof("[DeviceService] Updating device %d, fields changed: %v", existing.ID, updatedFields)
	if err := s.Devices.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// AdminDeleteDevice removes a device and cascades to its rain readings,
// image records and blobs
func (s *HubService) AdminDeleteDevice(ctx context.Context, ref models.DeviceRef) error {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return err
	}
	return s.Cleanup.DeleteDevice(ctx, device)
}

// RequestCapture queues a camera capture request for a device by
// broadcasting it to connected device observers
func (s *HubService) RequestCapture(ctx context.Context, ref models.DeviceRef) (*models.Device, error) {
	device, err := s.Devices.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	s.Publisher.Publish(ctx, events.TopicDeviceCapture, map[string]any{
		"device_id":  device.DeviceKey,
		"id":         device.ID,
		"request_at": time.Now(),
	})
	return device, nil
}
