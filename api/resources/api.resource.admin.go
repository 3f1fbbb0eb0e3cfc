// FilePath: api/resources/api.resource.admin.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rainwatch/rainhub/api/middleware"
	"github.com/rainwatch/rainhub/internal/errors"
	"github.com/rainwatch/rainhub/internal/hubservice"
	"github.com/rainwatch/rainhub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// AdminHandlers encapsulates the admin device-management handlers
type AdminHandlers struct {
	hubservice *hubservice.HubService
	auth       *middleware.AuthMiddleware
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Admin login
// @Description Exchange admin credentials for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Admin credentials"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.APIError
// @Router /auth/login [post]
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, errors.NewValidationError("email/password required", nil).WithRequestID(requestID))
		return
	}

	if err := h.auth.VerifyAdminLogin(req.Email, req.Password); err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	token, err := h.auth.SignAdminToken(req.Email)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to sign token", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

// @Summary List devices (admin)
// @Tags admin
// @Produce json
// @Success 200 {array} models.Device
// @Router /admin/devices [get]
// @Security BearerAuth
func (h *AdminHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	devices, err := h.hubservice.Devices.List(r.Context(), offset, limit)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}

// @Summary Create a device (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param device body models.Device true "Device details"
// @Success 201 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /admin/devices [post]
// @Security BearerAuth
func (h *AdminHandlers) CreateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.AdminCreateDevice(r.Context(), &device); err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary Update a device (admin)
// @Description Partial update; only admin-writable fields are merged
// @Tags admin
// @Accept json
// @Produce json
// @Param idOrKey path string true "Device id or key"
// @Param patch body models.Device true "Fields to update"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /admin/devices/{idOrKey} [patch]
// @Security BearerAuth
func (h *AdminHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	var patch models.Device
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	roles := middleware.RolesFromContext(r.Context())
	device, err := h.hubservice.AdminUpdateDevice(r.Context(), ref, &patch, roles)
	if err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Delete a device (admin)
// @Description Delete a device and cascade to its telemetry and blobs
// @Tags admin
// @Param idOrKey path string true "Device id or key"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.APIError
// @Router /admin/devices/{idOrKey} [delete]
// @Security BearerAuth
func (h *AdminHandlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	if err := h.hubservice.AdminDeleteDevice(r.Context(), ref); err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// @Summary Request a camera capture (admin)
// @Description Broadcast a capture request to the device's observers
// @Tags admin
// @Param idOrKey path string true "Device id or key"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.APIError
// @Router /admin/devices/{idOrKey}/capture [post]
// @Security BearerAuth
func (h *AdminHandlers) RequestCapture(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	ref := models.ParseDeviceRef(mux.Vars(r)["idOrKey"])

	if _, err := h.hubservice.RequestCapture(r.Context(), ref); err != nil {
		respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true, "queued": true})
}
