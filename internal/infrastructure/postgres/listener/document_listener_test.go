package listener

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type recordingTrigger struct {
	calls []string
}

func (r *recordingTrigger) TriggerReconcile(ctx context.Context, userID int64, documentID string) {
	r.calls = append(r.calls, documentID)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr bool
	}{
		{"valid", `{"user_id":4,"document_id":"d1","type":"credit_statement"}`, false},
		{"not json", `user 4`, true},
		{"missing user", `{"document_id":"d1"}`, true},
		{"missing document", `{"user_id":4}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parsePayload(tt.extra)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (p.UserID != 4 || p.DocumentID != "d1") {
				t.Errorf("payload = %+v", p)
			}
		})
	}

	if _, err := parsePayload(`{"user_id":0,"document_id":"d"}`); !errors.Is(err, errIncompletePayload) {
		t.Errorf("error = %v, want errIncompletePayload", err)
	}
}

func TestHandle(t *testing.T) {
	trigger := &recordingTrigger{}
	l := NewDocumentListener("", trigger, zerolog.Nop())

	l.handle(context.Background(), `{"user_id":1,"document_id":"credit","type":"credit_statement"}`)
	l.handle(context.Background(), `{"user_id":1,"document_id":"untyped"}`)
	l.handle(context.Background(), `{"user_id":1,"document_id":"bank","type":"bank_statement"}`)
	l.handle(context.Background(), `garbage`)

	if len(trigger.calls) != 2 || trigger.calls[0] != "credit" || trigger.calls[1] != "untyped" {
		t.Errorf("triggered = %v, want [credit untyped]", trigger.calls)
	}
}
