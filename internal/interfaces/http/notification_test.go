package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"kesef/internal/domain/notification"
)

type MockDeviceRegistrar struct {
	RegisterDeviceFunc func(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error)
}

func (m *MockDeviceRegistrar) RegisterDevice(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error) {
	if m.RegisterDeviceFunc != nil {
		return m.RegisterDeviceFunc(ctx, params)
	}
	return &notification.DeviceToken{}, nil
}

func TestHandleRegisterDevice(t *testing.T) {
	tests := []struct {
		name           string
		body           RegisterDeviceRequest
		expectedStatus int
	}{
		{"Success", RegisterDeviceRequest{Token: "tok", DeviceType: "ios"}, http.StatusCreated},
		{"Bad device type", RegisterDeviceRequest{Token: "tok", DeviceType: "fax"}, http.StatusBadRequest},
		{"Missing token", RegisterDeviceRequest{DeviceType: "web"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewNotificationHandler(&MockDeviceRegistrar{
				RegisterDeviceFunc: func(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error) {
					if err := params.Validate(); err != nil {
						return nil, err
					}
					return &notification.DeviceToken{UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType}, nil
				},
			})

			rr := httptest.NewRecorder()
			handler.HandleRegisterDevice(rr, authedRequest(http.MethodPost, "/api/devices", tt.body, 3))

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}
