package hubservice

import (
	"context"
	"testing"
	"time"

	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/events"
	"github.com/rainwatch/rainhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDevice(t *testing.T, env *testEnv, key string) *models.Device {
	t.Helper()
	device, err := env.svc.Heartbeat(context.Background(), models.DeviceUpsert{DeviceKey: key})
	require.NoError(t, err)
	return device
}

func TestListDeviceSummariesAttachesLatest(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	device := seedDevice(t, env, "dev-1")
	seedDevice(t, env, "dev-2") // never reported anything

	_, err := env.svc.RecordRain(ctx, RainInput{DeviceKey: "dev-1", RainfallMm: floatPtr(1.5)})
	require.NoError(t, err)

	summaries, err := env.svc.ListDeviceSummaries(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := make(map[int64]*models.DeviceSummary, len(summaries))
	for _, s := range summaries {
		byID[s.Device.ID] = s
	}

	withData := byID[device.ID]
	require.NotNil(t, withData)
	require.NotNil(t, withData.LatestRain)
	assert.Equal(t, 1.5, withData.LatestRain.RainfallMm)
	assert.Nil(t, withData.LatestImg)

	for id, s := range byID {
		if id != device.ID {
			assert.Nil(t, s.LatestRain, "device without telemetry keeps nil latest fields")
		}
	}
}

func TestGetDeviceDetailByIDAndKey(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	device := seedDevice(t, env, "dev-1")

	_, err := env.svc.RecordRain(ctx, RainInput{DeviceKey: "dev-1", RainfallMm: floatPtr(3.0)})
	require.NoError(t, err)

	byKey, err := env.svc.GetDeviceDetail(ctx, models.DeviceRef{Kind: models.RefByKey, Key: "dev-1"})
	require.NoError(t, err)
	byID, err := env.svc.GetDeviceDetail(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID})
	require.NoError(t, err)

	assert.Equal(t, byKey.Device.ID, byID.Device.ID)
	assert.Len(t, byKey.Rains, 1)
	assert.Empty(t, byKey.Images)
}

func TestRainHistoryUnknownDevice(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.RainHistory(context.Background(),
		models.DeviceRef{Kind: models.RefByKey, Key: "ghost"},
		models.RainHistoryFilters{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRainHistoryWindowFiltersOldReadings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	device := seedDevice(t, env, "dev-1")

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)
	for _, ts := range []time.Time{old, recent} {
		ts := ts
		_, err := env.svc.RecordRain(ctx, RainInput{DeviceKey: "dev-1", RainfallMm: floatPtr(1), Timestamp: &ts})
		require.NoError(t, err)
	}

	// default window is the trailing 24 hours
	readings, err := env.svc.RainHistory(ctx,
		models.DeviceRef{Kind: models.RefByID, ID: device.ID},
		models.RainHistoryFilters{})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, recent.Unix(), readings[0].Timestamp.Unix())
}

func TestDeviceImagesCapsLimit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	device := seedDevice(t, env, "dev-1")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.images.Insert(ctx, &models.ImageRecord{
			DeviceID:  device.ID,
			FilePath:  "uploads/2026-09/dev-1_" + string(rune('a'+i)) + ".jpg",
			Timestamp: time.Now(),
		}))
	}

	images, err := env.svc.DeviceImages(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID}, 2)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	// an absurd limit is clamped rather than rejected
	images, err = env.svc.DeviceImages(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID}, 100000)
	require.NoError(t, err)
	assert.Len(t, images, 3)
}

func TestAdminCreateDeviceValidatesAndConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.AdminCreateDevice(ctx, &models.Device{Name: "no key"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	device := &models.Device{DeviceKey: "dev-1", Name: "North gauge"}
	require.NoError(t, env.svc.AdminCreateDevice(ctx, device))
	assert.NotZero(t, device.ID)

	err = env.svc.AdminCreateDevice(ctx, &models.Device{DeviceKey: "dev-1", Name: "dup"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConflict, errors.AsAPIError(err).Type)
}

func TestAdminUpdateDeviceMergesWritableFields(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	name := "Original name"
	lat := 13.75
	device, err := env.svc.Heartbeat(ctx, models.DeviceUpsert{DeviceKey: "dev-1", Name: &name, Latitude: &lat})
	require.NoError(t, err)

	updated, err := env.svc.AdminUpdateDevice(ctx,
		models.DeviceRef{Kind: models.RefByID, ID: device.ID},
		&models.Device{Name: "Renamed gauge"},
		[]string{"admin"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed gauge", updated.Name)
	assert.Equal(t, lat, updated.Latitude, "zero-valued patch fields leave stored values alone")

	stored, err := env.devices.FindByRef(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID})
	require.NoError(t, err)
	assert.Equal(t, "Renamed gauge", stored.Name)
}

func TestAdminDeleteDeviceCascades(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	device := seedDevice(t, env, "dev-1")

	_, err := env.svc.RecordRain(ctx, RainInput{DeviceKey: "dev-1", RainfallMm: floatPtr(2)})
	require.NoError(t, err)
	_, _, err = env.svc.RecordImage(ctx,
		ImageInput{DeviceKey: "dev-1"},
		imageFile("jpeg"),
		imageHeader("a.jpg", "image/jpeg", 4),
	)
	require.NoError(t, err)

	require.NoError(t, env.svc.AdminDeleteDevice(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID}))

	_, err = env.devices.FindByRef(ctx, models.DeviceRef{Kind: models.RefByID, ID: device.ID})
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, env.rain.readings)
	assert.Empty(t, env.images.records)
	require.Len(t, env.blobs.removed, 1, "deleting a device removes its blobs")
}

func TestRequestCapturePublishes(t *testing.T) {
	env := newTestEnv()
	device := seedDevice(t, env, "dev-1")

	got, err := env.svc.RequestCapture(context.Background(), models.DeviceRef{Kind: models.RefByID, ID: device.ID})
	require.NoError(t, err)
	assert.Equal(t, device.ID, got.ID)
	assert.Contains(t, env.publisher.published(), events.TopicDeviceCapture)

	_, err = env.svc.RequestCapture(context.Background(), models.DeviceRef{Kind: models.RefByKey, Key: "ghost"})
	assert.True(t, errors.IsNotFound(err))
}
