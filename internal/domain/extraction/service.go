package extraction

import (
	"context"
	"fmt"

	"kesef/internal/domain/document"
	"kesef/internal/domain/reconciliation"
	"kesef/internal/domain/transaction"
	"kesef/internal/shared/logger"
)

type IngestResult struct {
	DocumentID      string `json:"documentId"`
	Created         int    `json:"created"`
	Dropped         int    `json:"dropped"`
	Pending         int    `json:"pending"`
	Proposed        int    `json:"proposed"`
	ReconcileQueued bool   `json:"reconcileQueued"`
}

// Service runs uploaded documents through extraction and stores the result.
type Service struct {
	documents    document.Repository
	transactions transaction.Repository
	loader       DocumentLoader
	extractor    Extractor
	trigger      reconciliation.Trigger
}

// NewService creates the ingest service. trigger may be nil, in which case
// credit statements are left for the sweep.
func NewService(documents document.Repository, transactions transaction.Repository, loader DocumentLoader, extractor Extractor, trigger reconciliation.Trigger) *Service {
	return &Service{
		documents:    documents,
		transactions: transactions,
		loader:       loader,
		extractor:    extractor,
		trigger:      trigger,
	}
}

// Ingest extracts the document's transactions and stores them tagged with
// the document id. A credit statement with billing metadata is then queued
// for reconciliation.
func (s *Service) Ingest(ctx context.Context, userID int64, documentID string) (*IngestResult, error) {
	log := logger.FromContext(ctx).With().
		Int64("user_id", userID).
		Str("document_id", documentID).
		Logger()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil || doc.UserID != userID {
		return nil, document.ErrDocumentNotFound
	}

	content, err := s.loader.Load(ctx, doc)
	if err != nil {
		s.markFailed(ctx, doc.ID)
		return nil, fmt.Errorf("failed to load document content: %w", err)
	}

	ext, err := s.extractor.Extract(ctx, doc, content)
	if err != nil {
		s.markFailed(ctx, doc.ID)
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	params, dropped := Normalize(userID, doc, ext.Transactions)
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("dropped malformed extracted rows")
	}
	if len(params) == 0 {
		s.markFailed(ctx, doc.ID)
		return nil, ErrEmptyDocument
	}

	created, err := s.transactions.CreateBatch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to store extracted transactions: %w", err)
	}

	result := &IngestResult{DocumentID: doc.ID, Created: len(created), Dropped: dropped}
	for _, t := range created {
		if t.Status == transaction.StatusPending {
			result.Pending++
		} else {
			result.Proposed++
		}
	}

	if ext.Billing != nil {
		if err := s.documents.SetBillingMetadata(ctx, doc.ID, ext.Billing); err != nil {
			log.Error().Err(err).Msg("failed to store billing metadata")
		} else {
			doc.Billing = ext.Billing
		}
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, document.StatusExtracted); err != nil {
		log.Error().Err(err).Msg("failed to mark document extracted")
	}

	if doc.Type == document.TypeCreditStatement && doc.Billing.Usable() && s.trigger != nil {
		s.trigger.TriggerReconcile(ctx, userID, doc.ID)
		result.ReconcileQueued = true
	}

	log.Info().
		Int("created", result.Created).
		Int("pending", result.Pending).
		Bool("reconcile_queued", result.ReconcileQueued).
		Msg("document ingested")
	return result, nil
}

func (s *Service) markFailed(ctx context.Context, documentID string) {
	if err := s.documents.UpdateStatus(ctx, documentID, document.StatusFailed); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("document_id", documentID).Msg("failed to mark document failed")
	}
}
