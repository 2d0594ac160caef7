package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"
)

type DeviceHandler struct {
	devices *service.DeviceService
}

func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context(), middleware.GetOwnerID(r), middleware.GetCredentialID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, devices)
}

func (h *DeviceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	credentialID := mux.Vars(r)["id"]
	if credentialID == "" {
		response.BadRequest(w, "device id is required")
		return
	}

	if err := h.devices.Revoke(r.Context(), middleware.GetOwnerID(r), credentialID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "revoked"})
}
