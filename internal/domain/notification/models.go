package notification

import (
	"errors"
	"time"
)

const (
	CategoryReconciliation = "reconciliation"
	CategoryGeneral        = "general"
)

var validDeviceTypes = map[string]struct{}{
	"ios":     {},
	"android": {},
	"web":     {},
}

var (
	ErrInvalidDeviceType = errors.New("device type must be 'ios', 'android' or 'web'")
	ErrInvalidToken      = errors.New("device token is required")
	ErrInvalidUser       = errors.New("valid user ID is required")
)

type DeviceToken struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	Token      string    `json:"token"`
	DeviceType string    `json:"deviceType"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsed   time.Time `json:"lastUsed"`
}

// Preference holds per-category toggles. A user without a stored row gets
// everything enabled.
type Preference struct {
	UserID                int64     `json:"-"`
	ReconciliationEnabled bool      `json:"reconciliationEnabled"`
	GeneralEnabled        bool      `json:"generalEnabled"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (p *Preference) IsCategoryEnabled(category string) bool {
	switch category {
	case CategoryReconciliation:
		return p.ReconciliationEnabled
	case CategoryGeneral:
		return p.GeneralEnabled
	default:
		return false
	}
}

type Notification struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"-"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Category  string            `json:"category"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

type RegisterDeviceParams struct {
	UserID     int64
	Token      string
	DeviceType string
}

func (p RegisterDeviceParams) Validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUser
	}
	if p.Token == "" {
		return ErrInvalidToken
	}
	if _, ok := validDeviceTypes[p.DeviceType]; !ok {
		return ErrInvalidDeviceType
	}
	return nil
}

type CreateNotificationParams struct {
	UserID   int64
	Title    string
	Message  string
	Category string
	Data     map[string]string
}
