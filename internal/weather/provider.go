// FilePath: internal/weather/provider.go
package weather

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rainwatch/rainhub/internal/config"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/models"
)

// Provider fetches current weather for a coordinate pair from an
// upstream service
type Provider interface {
	// Name returns the provider identifier used as the cache key segment
	Name() string
	// Configured reports whether the provider has its required credentials
	Configured() bool
	// Current performs one upstream call and normalizes the response
	Current(ctx context.Context, lat, lng float64) (*models.WeatherSummary, error)
}

// OpenWeatherProvider talks to the OpenWeatherMap current-weather API
type OpenWeatherProvider struct {
	client *resty.Client
	config config.WeatherConfig
}

// NewOpenWeatherProvider builds the provider with a bounded request
// timeout so a slow upstream cannot stall ingestionless query paths
func NewOpenWeatherProvider(cfg config.WeatherConfig) *OpenWeatherProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json")

	return &OpenWeatherProvider{client: client, config: cfg}
}

func (p *OpenWeatherProvider) Name() string {
	return p.config.Provider
}

func (p *OpenWeatherProvider) Configured() bool {
	return p.config.APIKey != ""
}

// Current calls the upstream once. Non-success responses surface as
// UpstreamError carrying the upstream status; they are never retried
// here.
func (p *OpenWeatherProvider) Current(ctx context.Context, lat, lng float64) (*models.WeatherSummary, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lng, 'f', -1, 64),
			"units": p.config.Units,
			"lang":  p.config.Lang,
			"appid": p.config.APIKey,
		}).
		Get("/weather")
	if err != nil {
		return nil, errors.NewUpstreamError("weather provider unreachable", 0, err)
	}

	var raw models.JSON
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, errors.NewUpstreamError("invalid weather provider response", 0, err)
	}

	if resp.IsError() {
		return nil, errors.NewUpstreamError("weather provider error", resp.StatusCode(), nil).
			WithDetails(raw)
	}

	return normalize(raw), nil
}

// normalize maps the raw OpenWeather shape into the summary served to
// clients, preserving the full payload
func normalize(raw models.JSON) *models.WeatherSummary {
	summary := &models.WeatherSummary{Raw: raw}

	if name, ok := raw["name"].(string); ok {
		summary.Name = name
	}
	if list, ok := raw["weather"].([]interface{}); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]interface{}); ok {
			if desc, ok := first["description"].(string); ok {
				summary.Weather = desc
			}
			if icon, ok := first["icon"].(string); ok {
				summary.Icon = icon
			}
		}
	}
	if main, ok := raw["main"].(map[string]interface{}); ok {
		if temp, ok := main["temp"].(float64); ok {
			summary.Temp = temp
		}
		if humidity, ok := main["humidity"].(float64); ok {
			summary.Humidity = humidity
		}
	}
	if wind, ok := raw["wind"].(map[string]interface{}); ok {
		if speed, ok := wind["speed"].(float64); ok {
			summary.WindSpeed = speed
		}
	}
	if dt, ok := raw["dt"].(float64); ok {
		summary.Dt = int64(dt)
	}

	return summary
}
