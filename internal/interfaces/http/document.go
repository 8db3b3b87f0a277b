package http

import (
	"context"
	"net/http"

	"kesef/internal/domain/extraction"
)

type ingester interface {
	Ingest(ctx context.Context, userID int64, documentID string) (*extraction.IngestResult, error)
}

type DocumentHandler struct {
	ingester ingester
}

func NewDocumentHandler(ingester ingester) *DocumentHandler {
	return &DocumentHandler{ingester: ingester}
}

// HandleIngest handles POST /api/documents/{id}/ingest. It answers 202 when
// the document also queued a reconciliation run.
func (h *DocumentHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	result, err := h.ingester.Ingest(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, r, err, "ingest document")
		return
	}

	status := http.StatusOK
	if result.ReconcileQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}
