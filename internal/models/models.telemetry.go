// FilePath: internal/models/models.telemetry.go
package models

import "time"

// RainReading represents a single immutable rainfall observation
type RainReading struct {
	ID         string    `json:"id" db:"id"`
	DeviceID   int64     `json:"device_id" db:"device_id"`
	RainfallMm float64   `json:"rainfall_mm" db:"rainfall_mm"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ImageRecord represents metadata for one uploaded device image.
// FilePath is relative to the storage root and always uses forward
// slashes, regardless of the host filesystem convention.
type ImageRecord struct {
	ID        int64     `json:"id" db:"id"`
	DeviceID  int64     `json:"device_id" db:"device_id"`
	FilePath  string    `json:"file_path" db:"file_path"`
	Width     *int      `json:"width,omitempty" db:"width"`
	Height    *int      `json:"height,omitempty" db:"height"`
	SizeKB    int       `json:"size_kb" db:"size_kb"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeviceSummary combines a device with its most recent telemetry, as
// returned by the device list endpoint
type DeviceSummary struct {
	Device     *Device      `json:"device"`
	LatestRain *RainReading `json:"latest_rain,omitempty"`
	LatestImg  *ImageRecord `json:"latest_image,omitempty"`
}

// DeviceDetail combines a device with bounded recent history
type DeviceDetail struct {
	Device *Device        `json:"device"`
	Rains  []*RainReading `json:"rains"`
	Images []*ImageRecord `json:"images"`
}
