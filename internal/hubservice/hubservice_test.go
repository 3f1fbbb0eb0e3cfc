package hubservice

import (
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/database"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
)

// In-memory repository fakes shared by the service tests. They keep the
// same semantics as the postgres implementations where the service
// depends on them (key upsert, not-found errors, delete cascades).

type fakeDeviceRepo struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]*models.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{byKey: make(map[string]*models.Device)}
}

func (r *fakeDeviceRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (r *fakeDeviceRepo) Upsert(ctx context.Context, input models.DeviceUpsert) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	device, ok := r.byKey[input.DeviceKey]
	if !ok {
		r.nextID++
		device = &models.Device{
			ID:        r.nextID,
			DeviceKey: input.DeviceKey,
			Name:      input.DeviceKey,
			CreatedAt: now,
		}
		r.byKey[input.DeviceKey] = device
	}
	if input.Name != nil {
		device.Name = *input.Name
	}
	if input.Latitude != nil {
		device.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		device.Longitude = *input.Longitude
	}
	device.IsOnline = true
	device.LastSeen = now
	device.UpdatedAt = now
	snapshot := *device
	return &snapshot, nil
}

func (r *fakeDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[device.DeviceKey]; ok {
		return errors.NewConflictError("device already exists", nil)
	}
	r.nextID++
	device.ID = r.nextID
	r.byKey[device.DeviceKey] = device
	return nil
}

func (r *fakeDeviceRepo) FindByRef(ctx context.Context, ref models.DeviceRef) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.Kind == models.RefByKey {
		if device, ok := r.byKey[ref.Key]; ok {
			snapshot := *device
			return &snapshot, nil
		}
	} else {
		for _, device := range r.byKey {
			if device.ID == ref.ID {
				snapshot := *device
				return &snapshot, nil
			}
		}
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}

func (r *fakeDeviceRepo) Update(ctx context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byKey[device.DeviceKey]
	if !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	*stored = *device
	return nil
}

func (r *fakeDeviceRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, device := range r.byKey {
		if device.ID == id {
			delete(r.byKey, key)
			return nil
		}
	}
	return errors.NewNotFoundError("device not found", nil)
}

func (r *fakeDeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	devices := make([]*models.Device, 0, len(r.byKey))
	for _, device := range r.byKey {
		snapshot := *device
		devices = append(devices, &snapshot)
	}
	return devices, nil
}

type fakeRainRepo struct {
	mu       sync.Mutex
	readings []*models.RainReading
}

func (r *fakeRainRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (r *fakeRainRepo) Insert(ctx context.Context, reading *models.RainReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reading.ID = "rr_test"
	reading.CreatedAt = time.Now()
	r.readings = append(r.readings, reading)
	return nil
}

func (r *fakeRainRepo) History(ctx context.Context, deviceID int64, since time.Time, limit int) ([]*models.RainReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RainReading
	for _, reading := range r.readings {
		if reading.DeviceID != deviceID {
			continue
		}
		if !since.IsZero() && reading.Timestamp.Before(since) {
			continue
		}
		out = append(out, reading)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeRainRepo) Latest(ctx context.Context, deviceID int64) (*models.RainReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.RainReading
	for _, reading := range r.readings {
		if reading.DeviceID != deviceID {
			continue
		}
		if latest == nil || reading.Timestamp.After(latest.Timestamp) {
			latest = reading
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no readings", nil)
	}
	return latest, nil
}

func (r *fakeRainRepo) Recent(ctx context.Context, deviceID int64, limit int) ([]*models.RainReading, error) {
	return r.History(ctx, deviceID, time.Time{}, limit)
}

func (r *fakeRainRepo) DeleteByDevice(ctx context.Context, deviceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.readings[:0]
	for _, reading := range r.readings {
		if reading.DeviceID != deviceID {
			kept = append(kept, reading)
		}
	}
	r.readings = kept
	return nil
}

func (r *fakeRainRepo) DeleteOldData(ctx context.Context, before time.Time) error {
	return nil
}

type fakeImageRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.ImageRecord
}

func (r *fakeImageRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (r *fakeImageRepo) Insert(ctx context.Context, img *models.ImageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	img.ID = r.nextID
	r.records = append(r.records, img)
	return nil
}

func (r *fakeImageRepo) Latest(ctx context.Context, deviceID int64) (*models.ImageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.ImageRecord
	for _, record := range r.records {
		if record.DeviceID != deviceID {
			continue
		}
		if latest == nil || record.Timestamp.After(latest.Timestamp) {
			latest = record
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no images", nil)
	}
	return latest, nil
}

func (r *fakeImageRepo) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]*models.ImageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ImageRecord
	for _, record := range r.records {
		if record.DeviceID == deviceID {
			out = append(out, record)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeImageRepo) DeleteByDevice(ctx context.Context, deviceID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	kept := r.records[:0]
	for _, record := range r.records {
		if record.DeviceID == deviceID {
			paths = append(paths, record.FilePath)
		} else {
			kept = append(kept, record)
		}
	}
	r.records = kept
	return paths, nil
}

// fakeBlobStore records placements without touching disk
type fakeBlobStore struct {
	mu      sync.Mutex
	placed  []string
	removed []string
	failure error
}

func (b *fakeBlobStore) Place(deviceKey string, src io.Reader, originalFilename string) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		return "", "", b.failure
	}
	publicPath := "uploads/2026-09/" + deviceKey + "_1.jpg"
	b.placed = append(b.placed, publicPath)
	return "/tmp/" + publicPath, publicPath, nil
}

func (b *fakeBlobStore) Remove(publicPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, publicPath)
	return nil
}

func (b *fakeBlobStore) DeleteOldFiles(before time.Time) error { return nil }
func (b *fakeBlobStore) BasePath() string                      { return "/tmp/uploads" }

// recordingPublisher captures published topics in order
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.topics))
	copy(out, p.topics)
	return out
}

type testEnv struct {
	svc       *HubService
	devices   *fakeDeviceRepo
	rain      *fakeRainRepo
	images    *fakeImageRepo
	blobs     *fakeBlobStore
	publisher *recordingPublisher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		devices:   newFakeDeviceRepo(),
		rain:      &fakeRainRepo{},
		images:    &fakeImageRepo{},
		blobs:     &fakeBlobStore{},
		publisher: &recordingPublisher{},
	}
	env.svc = New(env.devices, env.rain, env.images, env.blobs, env.publisher, config.FileStoreConfig{
		BasePath:         "/tmp/uploads",
		PublicPrefix:     "uploads",
		MaxFileSize:      5 * 1024 * 1024,
		AllowedMimeTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
	})
	return env
}

func imageHeader(filename, contentType string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: filename,
		Size:     size,
		Header:   textproto.MIMEHeader{"Content-Type": []string{contentType}},
	}
}

type nopFile struct {
	*strings.Reader
}

func (nopFile) Close() error { return nil }

func imageFile(data string) multipart.File {
	return nopFile{strings.NewReader(data)}
}
