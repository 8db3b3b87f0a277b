package firebase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	batches [][]string
	err     error
}

func (f *fakeSender) SendEachForMulticast(ctx context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, m.Tokens)
	resp := &messaging.BatchResponse{SuccessCount: len(m.Tokens)}
	for range m.Tokens {
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true})
	}
	return resp, nil
}

func TestChunkTokens(t *testing.T) {
	tokens := make([]string, 1201)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}

	chunks := chunkTokens(tokens, 500)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 500 || len(chunks[1]) != 500 || len(chunks[2]) != 201 {
		t.Errorf("chunk sizes = %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][200] != "t1200" {
		t.Errorf("last token = %s", chunks[2][200])
	}
	if got := chunkTokens(nil, 500); len(got) != 0 {
		t.Errorf("chunkTokens(nil) = %v", got)
	}
}

func TestSendMulticast_Batches(t *testing.T) {
	sender := &fakeSender{}
	c := newClient(sender, nil, zerolog.Nop())

	tokens := make([]string, 501)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i)
	}
	if err := c.SendMulticast(context.Background(), tokens, "t", "b", nil); err != nil {
		t.Fatalf("SendMulticast() error = %v", err)
	}
	if len(sender.batches) != 2 || len(sender.batches[1]) != 1 {
		t.Errorf("batches = %d", len(sender.batches))
	}

	if err := c.SendMulticast(context.Background(), nil, "t", "b", nil); err != nil || len(sender.batches) != 2 {
		t.Error("empty token list should be a no-op")
	}
}

func TestSendMulticast_Error(t *testing.T) {
	c := newClient(&fakeSender{err: errors.New("unavailable")}, nil, zerolog.Nop())
	if err := c.SendMulticast(context.Background(), []string{"a"}, "t", "b", nil); err == nil {
		t.Error("expected error")
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("short"); got != "****" {
		t.Errorf("maskToken(short) = %s", got)
	}
	if got := maskToken("abcdefghijklmnop"); got != "****klmnop" {
		t.Errorf("maskToken = %s", got)
	}
}
