package http

import (
	"context"
	"net/http"

	"kesef/internal/domain/notification"
)

type deviceRegistrar interface {
	RegisterDevice(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error)
}

type NotificationHandler struct {
	devices deviceRegistrar
}

func NewNotificationHandler(devices deviceRegistrar) *NotificationHandler {
	return &NotificationHandler{devices: devices}
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// HandleRegisterDevice handles POST /api/devices
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	device, err := h.devices.RegisterDevice(r.Context(), notification.RegisterDeviceParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
	})
	if err != nil {
		writeDomainError(w, r, err, "register device")
		return
	}
	writeJSON(w, http.StatusCreated, device)
}
