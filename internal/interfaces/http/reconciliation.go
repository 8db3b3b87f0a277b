package http

import (
	"context"
	"net/http"

	"kesef/internal/domain/transaction"
)

type batchMatcher interface {
	MatchBatch(ctx context.Context, userID int64, ids []string) ([]transaction.BatchResult, error)
}

type detailLinker interface {
	Link(ctx context.Context, userID int64, params transaction.LinkParams) (*transaction.LinkResult, error)
	Unlink(ctx context.Context, userID int64, parentID string) (int, error)
	GetDetails(ctx context.Context, userID int64, parentID string) (*transaction.DetailView, error)
}

type ReconciliationHandler struct {
	matcher batchMatcher
	linker  detailLinker
}

func NewReconciliationHandler(matcher batchMatcher, linker detailLinker) *ReconciliationHandler {
	return &ReconciliationHandler{matcher: matcher, linker: linker}
}

type MatchRequest struct {
	TransactionIDs []string `json:"transactionIds"`
}

type UnlinkRequest struct {
	ParentTransactionID string `json:"parentTransactionId"`
}

type UnlinkResponse struct {
	RestoredCount int `json:"restoredCount"`
}

// HandleMatches handles POST /api/reconciliation/matches
func (h *ReconciliationHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	results, err := h.matcher.MatchBatch(r.Context(), userID, req.TransactionIDs)
	if err != nil {
		writeDomainError(w, r, err, "find matches")
		return
	}
	if results == nil {
		results = []transaction.BatchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleLink handles POST /api/reconciliation/link
func (h *ReconciliationHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req transaction.LinkParams
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.linker.Link(r.Context(), userID, req)
	if err != nil {
		writeDomainError(w, r, err, "link transactions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleUnlink handles POST /api/reconciliation/unlink
func (h *ReconciliationHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UnlinkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	restored, err := h.linker.Unlink(r.Context(), userID, req.ParentTransactionID)
	if err != nil {
		writeDomainError(w, r, err, "unlink transactions")
		return
	}
	writeJSON(w, http.StatusOK, UnlinkResponse{RestoredCount: restored})
}

// HandleDetails handles GET /api/transactions/{id}/details
func (h *ReconciliationHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	view, err := h.linker.GetDetails(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, r, err, "load details")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
