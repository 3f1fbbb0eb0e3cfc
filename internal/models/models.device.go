// FilePath: internal/models/models.device.go
package models

import (
	"strconv"
	"time"
)

// Device represents one physical rain-gauge / camera unit.
// DeviceKey is the stable external identifier supplied by the device
// itself, distinct from the store-assigned numeric ID. It is immutable
// after creation.
type Device struct {
	ID        int64     `json:"id" db:"id"`
	DeviceKey string    `json:"device_id" db:"device_key"`
	Name      string    `json:"name" db:"name" readxs:"*" writexs:"admin,system"`
	Latitude  float64   `json:"lat" db:"latitude" readxs:"*" writexs:"admin,system"`
	Longitude float64   `json:"lng" db:"longitude" readxs:"*" writexs:"admin,system"`
	IsOnline  bool      `json:"is_online" db:"is_online" readxs:"*" writexs:"admin,system"`
	LastSeen  time.Time `json:"last_seen_at" db:"last_seen" readxs:"*" writexs:"system"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceUpsert carries the optional heartbeat fields for the atomic
// create-or-update by device key. A nil field means "leave as-is" on
// update; on create, missing fields fall back to defaults (name = key,
// coordinates = 0).
type DeviceUpsert struct {
	DeviceKey string   `json:"device_id"`
	Name      *string  `json:"name,omitempty"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
}

// DeviceRefKind tags how a device reference should be resolved
type DeviceRefKind int

const (
	// RefByID resolves against the internal numeric id
	RefByID DeviceRefKind = iota
	// RefByKey resolves against the external device key
	RefByKey
)

// DeviceRef is a resolved device identifier: either the internal numeric
// id or the external string key. It is parsed once at the API boundary
// and never re-interpreted downstream.
type DeviceRef struct {
	Kind DeviceRefKind
	ID   int64
	Key  string
}

// ParseDeviceRef interprets a path parameter as a device reference.
// Numeric-parseable input is treated as the internal id, everything else
// as the external key.
func ParseDeviceRef(raw string) DeviceRef {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return DeviceRef{Kind: RefByID, ID: id}
	}
	return DeviceRef{Kind: RefByKey, Key: raw}
}

// String returns the raw form of the reference, for logging
func (r DeviceRef) String() string {
	if r.Kind == RefByID {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Key
}
