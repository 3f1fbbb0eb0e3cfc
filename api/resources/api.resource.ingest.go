// FilePath: api/resources/api.resource.ingest.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// multipart forms are parsed with a small in-memory window; larger
// bodies spill to temp files
const multipartMemoryLimit = 1 << 20

// IngestHandlers encapsulates the device-facing ingestion handlers.
// Device authentication happens in middleware before these run.
type IngestHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Device heartbeat
// @Description Create or update the device record by its external key
// @Tags ingest
// @Accept json
// @Produce json
// @Param heartbeat body models.DeviceUpsert true "Heartbeat payload"
// @Success 200 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 401 {object} errors.APIError
// @Router /ingest/heartbeat [post]
func (h *IngestHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var input models.DeviceUpsert
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.hubservice.Heartbeat(r.Context(), input)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "device": device})
}

// @Summary Record a rain reading
// @Description Append one rainfall observation for an existing device
// @Tags ingest
// @Accept json
// @Produce json
// @Param reading body hubservice.RainInput true "Rain payload"
// @Success 200 {object} models.RainReading
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /ingest/rain [post]
func (h *IngestHandlers) RecordRain(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var input hubservice.RainInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	reading, err := h.hubservice.RecordRain(r.Context(), input)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "row": reading})
}

// @Summary Upload a device image
// @Description Store an image blob and its metadata record
// @Tags ingest
// @Accept multipart/form-data
// @Produce json
// @Param device_id formData string true "External device key"
// @Param image formData file true "Image file"
// @Success 200 {object} models.ImageRecord
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 415 {object} errors.APIError
// @Router /ingest/image [post]
func (h *IngestHandlers) RecordImage(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondWithError(w, errors.NewValidationError("invalid multipart form", err).WithRequestID(requestID))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, errors.NewValidationError("image file is required (multipart field \"image\")", err).WithRequestID(requestID))
		return
	}
	defer file.Close()

	input := hubservice.ImageInput{
		DeviceKey: r.FormValue("device_id"),
		Width:     parseOptionalInt(r.FormValue("width")),
		Height:    parseOptionalInt(r.FormValue("height")),
		Timestamp: parseOptionalTime(r.FormValue("timestamp")),
	}

	record, url, err := h.hubservice.RecordImage(r.Context(), input, file, header)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "row": record, "url": url})
}

func parseOptionalInt(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func parseOptionalTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(ms)
		return &t
	}
	return nil
}
