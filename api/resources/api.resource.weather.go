// FilePath: api/resources/api.resource.weather.go
package resources

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/weather"
	nuts "github.com/vaudience/go-nuts"
)

// WeatherHandlers encapsulates the weather lookup handler
type WeatherHandlers struct {
	weather *weather.Service
}

// @Summary Current weather
// @Description Normalized weather summary for a coordinate pair, cached for 5 minutes
// @Tags weather
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param nocache query bool false "Bypass the cache"
// @Success 200 {object} models.WeatherSummary
// @Failure 400 {object} errors.APIError
// @Failure 503 {object} errors.APIError
// @Router /weather [get]
func (h *WeatherHandlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		respondWithError(w, errors.NewValidationError("lat/lng required", nil).WithRequestID(requestID))
		return
	}

	forceRefresh := query.Get("nocache") != ""

	summary, err := h.weather.Lookup(r.Context(), lat, lng, forceRefresh)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
