// FilePath: internal/hubservice/hubservice.ingest.go
package hubservice

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/events"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// The ingestion entry points assume device-level authentication has
// already passed in middleware; they only check existence of the device
// record where required.

// RainInput carries the rain ingestion payload. RainfallMm is a pointer
// so a missing value is distinguishable from zero and rejected rather
// than coerced.
type RainInput struct {
	DeviceKey  string     `json:"device_id"`
	RainfallMm *float64   `json:"rainfall_mm"`
	Timestamp  *time.Time `json:"timestamp"`
}

// ImageInput carries the image ingestion payload alongside the uploaded
// multipart file
type ImageInput struct {
	DeviceKey string
	Width     *int
	Height    *int
	Timestamp *time.Time
}

// Heartbeat atomically creates or updates the device identified by the
// external key, marks it online and stamps last-seen to now. Emits
// device:update with the resulting snapshot.
func (s *HubService) Heartbeat(ctx context.Context, input models.DeviceUpsert) (*models.Device, error) {
	if input.DeviceKey == "" {
		return nil, errors.NewValidationError("device_id is required", nil)
	}

	device, err := s.Devices.Upsert(ctx, input)
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[Ingest] Heartbeat from %s (id %d)", device.DeviceKey, device.ID)
	s.Publisher.Publish(ctx, events.TopicDeviceUpdate, device)
	return device, nil
}

// RecordRain persists one immutable rainfall observation for an existing
// device. Missing or negative rainfall values are rejected outright.
// Emits rain:new.
func (s *HubService) RecordRain(ctx context.Context, input RainInput) (*models.RainReading, error) {
	if input.DeviceKey == "" {
		return nil, errors.NewValidationError("device_id is required", nil)
	}
	if input.RainfallMm == nil {
		return nil, errors.NewValidationError("rainfall_mm is required", nil)
	}
	if *input.RainfallMm < 0 {
		return nil, errors.NewValidationError("rainfall_mm must be non-negative", nil)
	}

	device, err := s.Devices.FindByRef(ctx, models.DeviceRef{Kind: models.RefByKey, Key: input.DeviceKey})
	if err != nil {
		return nil, err
	}

	reading := &models.RainReading{
		DeviceID:   device.ID,
		RainfallMm: *input.RainfallMm,
		Timestamp:  timestampOrNow(input.Timestamp),
	}
	if err := s.Rain.Insert(ctx, reading); err != nil {
		return nil, err
	}

	s.Publisher.Publish(ctx, events.TopicRainNew, reading)
	return reading, nil
}

// RecordImage validates and places the uploaded blob, then persists its
// metadata record. The blob is committed before any metadata row is
// written; a storage failure aborts the request with no orphan metadata.
// A metadata failure after a committed blob leaves the blob orphaned on
// disk. Emits image:new.
func (s *HubService) RecordImage(ctx context.Context, input ImageInput, file multipart.File, header *multipart.FileHeader) (*models.ImageRecord, string, error) {
	if input.DeviceKey == "" {
		return nil, "", errors.NewValidationError("device_id is required", nil)
	}
	if file == nil || header == nil {
		return nil, "", errors.NewValidationError("image file is required", nil)
	}
	if header.Size > s.fileCfg.MaxFileSize {
		return nil, "", errors.NewValidationError(
			fmt.Sprintf("file size exceeds maximum allowed size of %d bytes", s.fileCfg.MaxFileSize), nil)
	}
	contentType := header.Header.Get("Content-Type")
	if !s.isAllowedMimeType(contentType) {
		return nil, "", errors.NewUnsupportedMediaError(
			fmt.Sprintf("content type %q not allowed", contentType), nil)
	}

	device, err := s.Devices.FindByRef(ctx, models.DeviceRef{Kind: models.RefByKey, Key: input.DeviceKey})
	if err != nil {
		return nil, "", err
	}

	_, publicPath, err := s.Blobs.Place(device.DeviceKey, file, header.Filename)
	if err != nil {
		return nil, "", err
	}

	record := &models.ImageRecord{
		DeviceID:  device.ID,
		FilePath:  publicPath,
		Width:     input.Width,
		Height:    input.Height,
		SizeKB:    int((header.Size + 512) / 1024),
		Timestamp: timestampOrNow(input.Timestamp),
		CreatedAt: time.Now(),
	}
	if err := s.Images.Insert(ctx, record); err != nil {
		// blob already on disk, now orphaned; flagged for operational cleanup
		nuts.L.Warnf("[Ingest] Metadata write failed after blob commit, orphan at %s: %v", publicPath, err)
		return nil, "", err
	}

	s.Publisher.Publish(ctx, events.TopicImageNew, record)
	return record, "/" + publicPath, nil
}

func (s *HubService) isAllowedMimeType(contentType string) bool {
	for _, allowed := range s.fileCfg.AllowedMimeTypes {
		if allowed == contentType {
			return true
		}
	}
	return false
}

func timestampOrNow(ts *time.Time) time.Time {
	if ts != nil && !ts.IsZero() {
		return *ts
	}
	return time.Now()
}
