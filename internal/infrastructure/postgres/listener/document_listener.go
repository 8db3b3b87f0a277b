package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"kesef/internal/domain/document"
	"kesef/internal/domain/reconciliation"
)

const (
	channelName       = "document_extracted"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// DocumentExtracted is the NOTIFY payload sent when a document finishes
// extraction.
type DocumentExtracted struct {
	UserID     int64  `json:"user_id"`
	DocumentID string `json:"document_id"`
	Type       string `json:"type"`
}

var errIncompletePayload = errors.New("notification payload is missing user_id or document_id")

func parsePayload(extra string) (DocumentExtracted, error) {
	var p DocumentExtracted
	if err := json.Unmarshal([]byte(extra), &p); err != nil {
		return p, err
	}
	if p.UserID <= 0 || p.DocumentID == "" {
		return p, errIncompletePayload
	}
	return p, nil
}

// DocumentListener turns document_extracted notifications for credit
// statements into reconciliation triggers.
type DocumentListener struct {
	connStr    string
	trigger    reconciliation.Trigger
	log        zerolog.Logger
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewDocumentListener(connStr string, trigger reconciliation.Trigger, log zerolog.Logger) *DocumentListener {
	return &DocumentListener{
		connStr:    connStr,
		trigger:    trigger,
		log:        log.With().Str("component", "document_listener").Logger(),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *DocumentListener) Start(ctx context.Context) {
	go l.listen(ctx)
	l.log.Info().Str("channel", channelName).Msg("document listener started")
}

// Stop waits for the listener goroutine to exit.
func (l *DocumentListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	l.log.Info().Msg("document listener stopped")
}

func (l *DocumentListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			l.log.Info().Msg("reconnecting to PostgreSQL for notifications")
		}
	}
}

func (l *DocumentListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.log.Debug().Msg("connected to notification channel")
		case pq.ListenerEventDisconnected:
			l.log.Warn().Err(err).Msg("disconnected from notification channel")
		case pq.ListenerEventReconnected:
			l.log.Info().Msg("reconnected to notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			l.log.Error().Err(err).Msg("notification connection attempt failed")
		}
	})
	defer listener.Close()

	if err := listener.Listen(channelName); err != nil {
		l.log.Error().Err(err).Str("channel", channelName).Msg("failed to listen")
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// connection lost; reconnect
				return
			}
			l.handle(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.log.Warn().Err(err).Msg("listener ping failed")
				}
			}()
		}
	}
}

func (l *DocumentListener) handle(ctx context.Context, extra string) {
	payload, err := parsePayload(extra)
	if err != nil {
		l.log.Warn().Err(err).Str("payload", extra).Msg("ignoring malformed notification")
		return
	}
	if payload.Type != "" && payload.Type != document.TypeCreditStatement {
		return
	}
	l.log.Debug().Int64("user_id", payload.UserID).Str("document_id", payload.DocumentID).Msg("document extracted")
	l.trigger.TriggerReconcile(ctx, payload.UserID, payload.DocumentID)
}
