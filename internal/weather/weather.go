// FilePath: internal/weather/weather.go

// Package weather implements the read-through weather cache: lookups are
// served from memoized upstream responses within a freshness window and
// fall through to the live provider otherwise, writing back on success
// only.
package weather

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
	"github.com/rainwatch/rainhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const coordHashLen = 10

// Service resolves weather lookups through the cache
type Service struct {
	cache    repository.WeatherCacheRepository
	provider Provider
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates the weather cache service
func NewService(cache repository.WeatherCacheRepository, provider Provider, ttl time.Duration) *Service {
	return &Service{
		cache:    cache,
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Lookup returns the weather summary for a coordinate pair. A fresh
// cache hit short-circuits the upstream call entirely unless
// forceRefresh is set. Upstream failures are returned as-is and never
// written to the cache. The check-then-write sequence is not atomic;
// concurrent identical lookups may each call upstream and write their
// own row, which is tolerated.
func (s *Service) Lookup(ctx context.Context, lat, lng float64, forceRefresh bool) (*models.WeatherSummary, error) {
	latHash := CoordHash(lat)
	lngHash := CoordHash(lng)

	if !forceRefresh {
		notBefore := s.now().Add(-s.ttl)
		entry, err := s.cache.FindFresh(ctx, latHash, lngHash, s.provider.Name(), notBefore)
		if err == nil {
			return summaryFromPayload(entry.Payload)
		}
		if !errors.IsNotFound(err) {
			// a broken cache should not take the endpoint down
			nuts.L.Warnf("[Weather] Cache lookup failed: %v", err)
		}
	}

	if !s.provider.Configured() {
		return nil, errors.NewUnavailableError("weather provider credentials not configured", nil)
	}

	summary, err := s.provider.Current(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	entry := &models.WeatherCacheEntry{
		LatHash:   latHash,
		LngHash:   lngHash,
		Provider:  s.provider.Name(),
		Payload:   payloadFromSummary(summary),
		FetchedAt: s.now(),
	}
	if err := s.cache.Insert(ctx, entry); err != nil {
		// the summary is still good; cache write failure is not fatal
		nuts.L.Warnf("[Weather] Cache write failed: %v", err)
	}

	return summary, nil
}

// CoordHash computes a short stable digest of a coordinate. Identical
// numeric input always produces the same hash.
func CoordHash(coord float64) string {
	sum := md5.Sum([]byte(strconv.FormatFloat(coord, 'f', -1, 64)))
	return hex.EncodeToString(sum[:])[:coordHashLen]
}

func summaryFromPayload(payload models.JSON) (*models.WeatherSummary, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError("failed to decode cached weather payload", err)
	}
	summary := &models.WeatherSummary{}
	if err := json.Unmarshal(data, summary); err != nil {
		return nil, errors.NewInternalError("failed to decode cached weather payload", err)
	}
	return summary, nil
}

func payloadFromSummary(summary *models.WeatherSummary) models.JSON {
	data, err := json.Marshal(summary)
	if err != nil {
		return models.JSON{}
	}
	payload := models.JSON{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.JSON{}
	}
	return payload
}
