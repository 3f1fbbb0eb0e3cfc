// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rainwatch/rainhub/api/middleware"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/weather"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Ingest  *IngestHandlers
	Devices *DeviceHandlers
	Weather *WeatherHandlers
	Admin   *AdminHandlers
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService, weatherSvc *weather.Service, auth *middleware.AuthMiddleware) *Resources {
	return &Resources{
		Ingest:  &IngestHandlers{hubservice: svc},
		Devices: &DeviceHandlers{hubservice: svc},
		Weather: &WeatherHandlers{weather: weatherSvc},
		Admin:   &AdminHandlers{hubservice: svc, auth: auth},
	}
}

// Helper functions

func getPaginationParams(r *http.Request) (offset, limit int) {
	query := r.URL.Query()
	offset, _ = strconv.Atoi(query.Get("offset"))
	limit, _ = strconv.Atoi(query.Get("limit"))

	if limit <= 0 || limit > 100 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	return offset, limit
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
