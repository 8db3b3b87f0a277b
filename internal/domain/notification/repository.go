package notification

import "context"

type Repository interface {
	UpsertDeviceToken(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error)
	GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateToken(ctx context.Context, token string) error
	// GetPreferences returns (nil, nil) when the user never stored any.
	GetPreferences(ctx context.Context, userID int64) (*Preference, error)
	CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error)
}
