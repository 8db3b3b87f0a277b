package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kesef/internal/domain/transaction"
	"kesef/internal/shared/middleware"
)

type MockMatcher struct {
	MatchBatchFunc func(ctx context.Context, userID int64, ids []string) ([]transaction.BatchResult, error)
}

func (m *MockMatcher) MatchBatch(ctx context.Context, userID int64, ids []string) ([]transaction.BatchResult, error) {
	if m.MatchBatchFunc != nil {
		return m.MatchBatchFunc(ctx, userID, ids)
	}
	return nil, nil
}

type MockLinker struct {
	LinkFunc       func(ctx context.Context, userID int64, params transaction.LinkParams) (*transaction.LinkResult, error)
	UnlinkFunc     func(ctx context.Context, userID int64, parentID string) (int, error)
	GetDetailsFunc func(ctx context.Context, userID int64, parentID string) (*transaction.DetailView, error)
}

func (m *MockLinker) Link(ctx context.Context, userID int64, params transaction.LinkParams) (*transaction.LinkResult, error) {
	if m.LinkFunc != nil {
		return m.LinkFunc(ctx, userID, params)
	}
	return &transaction.LinkResult{}, nil
}

func (m *MockLinker) Unlink(ctx context.Context, userID int64, parentID string) (int, error) {
	if m.UnlinkFunc != nil {
		return m.UnlinkFunc(ctx, userID, parentID)
	}
	return 0, nil
}

func (m *MockLinker) GetDetails(ctx context.Context, userID int64, parentID string) (*transaction.DetailView, error) {
	if m.GetDetailsFunc != nil {
		return m.GetDetailsFunc(ctx, userID, parentID)
	}
	return &transaction.DetailView{}, nil
}

func authedRequest(method, target string, body any, userID int64) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != 0 {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	}
	return req
}

func TestHandleMatches(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		userID         int64
		body           any
		matchErr       error
		expectedStatus int
	}{
		{name: "Success", method: http.MethodPost, userID: 1, body: MatchRequest{TransactionIDs: []string{"tx-1"}}, expectedStatus: http.StatusOK},
		{name: "Unauthorized", method: http.MethodPost, body: MatchRequest{}, expectedStatus: http.StatusUnauthorized},
		{name: "Wrong method", method: http.MethodGet, userID: 1, expectedStatus: http.StatusMethodNotAllowed},
		{name: "Validation", method: http.MethodPost, userID: 1, body: MatchRequest{}, matchErr: fmt.Errorf("%w: ids required", transaction.ErrValidation), expectedStatus: http.StatusBadRequest},
		{name: "Not found", method: http.MethodPost, userID: 1, body: MatchRequest{TransactionIDs: []string{"gone"}}, matchErr: fmt.Errorf("%w: none exist", transaction.ErrNotFound), expectedStatus: http.StatusNotFound},
		{name: "Repository failure", method: http.MethodPost, userID: 1, body: MatchRequest{TransactionIDs: []string{"tx-1"}}, matchErr: errors.New("db down"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser int64
			matcher := &MockMatcher{
				MatchBatchFunc: func(ctx context.Context, userID int64, ids []string) ([]transaction.BatchResult, error) {
					gotUser = userID
					if tt.matchErr != nil {
						return nil, tt.matchErr
					}
					return []transaction.BatchResult{{TransactionID: ids[0]}}, nil
				},
			}
			handler := NewReconciliationHandler(matcher, &MockLinker{})

			rr := httptest.NewRecorder()
			handler.HandleMatches(rr, authedRequest(tt.method, "/api/reconciliation/matches", tt.body, tt.userID))

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && gotUser != tt.userID {
				t.Errorf("matcher called with user %d, want %d", gotUser, tt.userID)
			}
		})
	}
}

func TestHandleMatchesInvalidBody(t *testing.T) {
	handler := NewReconciliationHandler(&MockMatcher{}, &MockLinker{})
	req := httptest.NewRequest(http.MethodPost, "/api/reconciliation/matches", bytes.NewBufferString("{not json"))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, int64(1)))

	rr := httptest.NewRecorder()
	handler.HandleMatches(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleLink(t *testing.T) {
	var got transaction.LinkParams
	linker := &MockLinker{
		LinkFunc: func(ctx context.Context, userID int64, params transaction.LinkParams) (*transaction.LinkResult, error) {
			got = params
			return &transaction.LinkResult{
				Parent:       &transaction.Transaction{ID: params.ParentTransactionID},
				DetailsTotal: 300,
			}, nil
		},
	}
	handler := NewReconciliationHandler(&MockMatcher{}, linker)

	body := map[string]any{
		"parentTransactionId":  "parent",
		"detailTransactionIds": []string{"a", "b"},
	}
	rr := httptest.NewRecorder()
	handler.HandleLink(rr, authedRequest(http.MethodPost, "/api/reconciliation/link", body, 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got.ParentTransactionID != "parent" || len(got.DetailTransactionIDs) != 2 {
		t.Errorf("linker received %+v", got)
	}

	var resp transaction.LinkResult
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DetailsTotal != 300 {
		t.Errorf("detailsTotal = %v, want 300", resp.DetailsTotal)
	}
}

func TestHandleUnlink(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"Success", nil, http.StatusOK},
		{"Foreign parent", fmt.Errorf("%w: %w", transaction.ErrNotFound, transaction.ErrForbidden), http.StatusNotFound},
		{"Failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linker := &MockLinker{
				UnlinkFunc: func(ctx context.Context, userID int64, parentID string) (int, error) {
					if tt.err != nil {
						return 0, tt.err
					}
					return 2, nil
				},
			}
			handler := NewReconciliationHandler(&MockMatcher{}, linker)

			rr := httptest.NewRecorder()
			handler.HandleUnlink(rr, authedRequest(http.MethodPost, "/api/reconciliation/unlink", UnlinkRequest{ParentTransactionID: "p"}, 1))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK {
				var resp UnlinkResponse
				_ = json.NewDecoder(rr.Body).Decode(&resp)
				if resp.RestoredCount != 2 {
					t.Errorf("restoredCount = %d, want 2", resp.RestoredCount)
				}
			}
		})
	}
}

func TestHandleDetails(t *testing.T) {
	var gotID string
	linker := &MockLinker{
		GetDetailsFunc: func(ctx context.Context, userID int64, parentID string) (*transaction.DetailView, error) {
			gotID = parentID
			return &transaction.DetailView{HasDetails: true}, nil
		},
	}
	handler := NewReconciliationHandler(&MockMatcher{}, linker)

	req := authedRequest(http.MethodGet, "/api/transactions/tx-9/details", nil, 1)
	req.SetPathValue("id", "tx-9")
	rr := httptest.NewRecorder()
	handler.HandleDetails(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotID != "tx-9" {
		t.Errorf("parent id = %q, want tx-9", gotID)
	}
}
