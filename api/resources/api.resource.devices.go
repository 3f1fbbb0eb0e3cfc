// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// DeviceHandlers encapsulates the read-only device query handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List devices
// @Description List devices with most recent rain reading and image each
// @Tags devices
// @Produce json
// @Success 200 {array} models.DeviceSummary
// @Router /devices [get]
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	summaries, err := h.hubservice.ListDeviceSummaries(r.Context(), offset, limit)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, summaries)
}

// @Summary Get a device
// @Description Get one device by numeric id or external key with recent history
// @Tags devices
// @Produce json
// @Param idOrKey path string true "Device id or key"
// @Success 200 {object} models.DeviceDetail
// @Failure 404 {object} errors.APIError
// @Router /devices/{idOrKey} [get]
func (h *DeviceHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	detail, err := h.hubservice.GetDeviceDetail(r.Context(), ref)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// @Summary Rain history
// @Description Rain readings for a device within an hours window, since a timestamp, or by row limit; ascending order
// @Tags devices
// @Produce json
// @Param idOrKey path string true "Device id or key"
// @Param hours query int false "Hours back window (default 24)"
// @Param since query string false "Explicit RFC3339 since-timestamp"
// @Param today query bool false "Since local midnight"
// @Param limit query int false "Row limit (only without a time filter)"
// @Success 200 {array} models.RainReading
// @Failure 404 {object} errors.APIError
// @Router /devices/{idOrKey}/rain [get]
func (h *DeviceHandlers) GetRainHistory(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	var filters models.RainHistoryFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	readings, err := h.hubservice.RainHistory(r.Context(), ref, filters)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary List device images
// @Description Images for a device, newest first, limit capped at 500
// @Tags devices
// @Produce json
// @Param idOrKey path string true "Device id or key"
// @Param limit query int false "Row limit (default 100, max 500)"
// @Success 200 {array} models.ImageRecord
// @Failure 404 {object} errors.APIError
// @Router /devices/{idOrKey}/images [get]
func (h *DeviceHandlers) ListImages(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	images, err := h.hubservice.DeviceImages(r.Context(), ref, limit)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	type imageWithURL struct {
		*models.ImageRecord
		URL string `json:"url"`
	}
	out := make([]imageWithURL, 0, len(images))
	for _, img := range images {
		out = append(out, imageWithURL{img, publicURL(img.FilePath)})
	}

	respondWithJSON(w, http.StatusOK, out)
}

// @Summary Latest device image
// @Description The most recent image for a device with its public URL
// @Tags devices
// @Produce json
// @Param idOrKey path string true "Device id or key"
// @Success 200 {object} models.ImageRecord
// @Failure 404 {object} errors.APIError
// @Router /devices/{idOrKey}/latest-image [get]
func (h *DeviceHandlers) GetLatestImage(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	img, err := h.hubservice.LatestImage(r.Context(), ref)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"image": img,
		"url":   publicURL(img.FilePath),
	})
}

// publicURL derives the served URL from a stored relative path
func publicURL(filePath string) string {
	p := strings.ReplaceAll(filePath, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
