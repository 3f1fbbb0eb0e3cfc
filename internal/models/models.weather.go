// FilePath: internal/models/models.weather.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a wrapper around map[string]interface{} for database storage
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// WeatherCacheEntry is one memoized upstream weather lookup. Entries are
// append-only; freshness is judged purely by FetchedAt against the cache
// TTL, stale rows are ignored by queries rather than deleted.
type WeatherCacheEntry struct {
	ID        int64     `json:"id" db:"id"`
	LatHash   string    `json:"lat_hash" db:"lat_hash"`
	LngHash   string    `json:"lng_hash" db:"lng_hash"`
	Provider  string    `json:"provider" db:"provider"`
	Payload   JSON      `json:"payload" db:"payload"`
	FetchedAt time.Time `json:"fetched_at" db:"fetched_at"`
}

// WeatherSummary is the normalized provider response served to clients.
// Raw preserves the untouched provider payload.
type WeatherSummary struct {
	Name      string  `json:"name"`
	Weather   string  `json:"weather"`
	Icon      string  `json:"icon"`
	Temp      float64 `json:"temp"`
	Humidity  float64 `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
	Dt        int64   `json:"dt"`
	Raw       JSON    `json:"raw"`
}
