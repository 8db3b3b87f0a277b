package notification

import (
	"context"
	"fmt"
	"strconv"

	"kesef/internal/shared/logger"
)

type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates the notification service. messenger may be nil, in
// which case notifications are recorded but not pushed.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpsertDeviceToken(ctx, params)
}

// NotifyReconciled tells the user that a credit statement was merged into
// its bank charge.
func (s *Service) NotifyReconciled(ctx context.Context, userID int64, creditDocumentID, bankTransactionID string, amount float64) error {
	title := "דוח האשראי הותאם"
	body := fmt.Sprintf("חיוב האשראי בסך ₪%.2f פוצל לפירוט העסקאות", amount)
	data := map[string]string{
		"route":             "transactions",
		"documentId":        creditDocumentID,
		"bankTransactionId": bankTransactionID,
		"amount":            strconv.FormatFloat(amount, 'f', 2, 64),
	}
	return s.SendToUser(ctx, userID, title, body, CategoryReconciliation, data)
}

// SendToUser pushes to every active device of the user and stores a record.
// Delivery problems are logged; only lookup failures are returned.
func (s *Service) SendToUser(ctx context.Context, userID int64, title, body, category string, data map[string]string) error {
	log := logger.FromContext(ctx).With().Int64("user_id", userID).Str("category", category).Logger()

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load notification preferences: %w", err)
	}
	if prefs != nil && !prefs.IsCategoryEnabled(category) {
		log.Debug().Msg("notification skipped, category disabled")
		return nil
	}

	tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}

	if s.messenger != nil && len(tokens) > 0 {
		tokenStrings := make([]string, len(tokens))
		for i, t := range tokens {
			tokenStrings[i] = t.Token
		}
		if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, data); err != nil {
			log.Error().Err(err).Msg("failed to push notification")
		}
	} else if len(tokens) == 0 {
		log.Debug().Msg("no active device tokens")
	}

	if _, err := s.repo.CreateNotification(ctx, CreateNotificationParams{
		UserID:   userID,
		Title:    title,
		Message:  body,
		Category: category,
		Data:     data,
	}); err != nil {
		log.Error().Err(err).Msg("failed to store notification")
	}

	return nil
}
