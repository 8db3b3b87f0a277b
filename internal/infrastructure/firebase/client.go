package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const fcmBatchLimit = 500

// TokenDeactivator marks an FCM token as inactive once FCM rejects it.
type TokenDeactivator func(ctx context.Context, token string) error

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client implements notification.Messenger using Firebase Cloud Messaging.
type Client struct {
	sender      multicastSender
	deactivator TokenDeactivator
	log         zerolog.Logger
}

// NewClient initializes a Firebase app from a service account file.
// deactivator may be nil.
func NewClient(ctx context.Context, credentialsFile string, deactivator TokenDeactivator, log zerolog.Logger) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return newClient(msgClient, deactivator, log), nil
}

func newClient(sender multicastSender, deactivator TokenDeactivator, log zerolog.Logger) *Client {
	return &Client{
		sender:      sender,
		deactivator: deactivator,
		log:         log.With().Str("component", "fcm").Logger(),
	}
}

// SendMulticast pushes one notification to every token, in batches of 500.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	var totalSuccess, totalFailure int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		msg := &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}

		resp, err := c.sender.SendEachForMulticast(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to send FCM multicast: %w", err)
		}

		totalSuccess += resp.SuccessCount
		totalFailure += resp.FailureCount
		if resp.FailureCount > 0 {
			c.handleMulticastFailures(ctx, batch, resp)
		}
	}

	c.log.Debug().Int("success", totalSuccess).Int("failure", totalFailure).Msg("FCM multicast sent")
	return nil
}

func (c *Client) handleMulticastFailures(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	for i, sendResp := range resp.Responses {
		if sendResp == nil || sendResp.Error == nil || i >= len(tokens) {
			continue
		}
		if messaging.IsUnregistered(sendResp.Error) || messaging.IsInvalidArgument(sendResp.Error) {
			c.log.Info().Str("token", maskToken(tokens[i])).Msg("deactivating rejected FCM token")
			c.deactivateToken(ctx, tokens[i])
		} else {
			c.log.Warn().Err(sendResp.Error).Int("index", i).Msg("FCM send error")
		}
	}
}

func (c *Client) deactivateToken(ctx context.Context, token string) {
	if c.deactivator == nil {
		return
	}
	if err := c.deactivator(ctx, token); err != nil {
		c.log.Error().Err(err).Str("token", maskToken(token)).Msg("failed to deactivate FCM token")
	}
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-6:]
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
