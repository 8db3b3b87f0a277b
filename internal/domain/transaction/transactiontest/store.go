// Package transactiontest provides an in-memory implementation of the
// transaction repositories for tests.
package transactiontest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"kesef/internal/domain/transaction"
)

// Store keeps transactions and details in memory. Failure hooks let tests
// make individual operations fail.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*transaction.Transaction
	details      map[string]*transaction.Detail
	seq          int

	FailCreateDetails error
	FailUpdate        error
	FailDeleteBatch   error
	FailDeleteDetails error
	FailCreateBatch   error
	FailFindInWindow  error
	FailMarkMatched   error
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*transaction.Transaction),
		details:      make(map[string]*transaction.Detail),
	}
}

// Put stores a copy of t as-is, bypassing Create defaults.
func (s *Store) Put(t *transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.seq++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Unix(int64(s.seq), 0)
	}
	s.transactions[cp.ID] = &cp
}

// Get returns a copy of the stored transaction, or nil.
func (s *Store) Get(id string) *transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// All returns copies of every transaction ordered by creation.
func (s *Store) All() []*transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(*transaction.Transaction) bool { return true })
}

// DetailCount returns how many detail rows belong to parentID.
func (s *Store) DetailCount(parentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.details {
		if d.ParentTransactionID == parentID {
			n++
		}
	}
	return n
}

func (s *Store) sortedLocked(keep func(*transaction.Transaction) bool) []*transaction.Transaction {
	var out []*transaction.Transaction
	for _, t := range s.transactions {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) fromParams(p transaction.CreateTransactionParams) *transaction.Transaction {
	s.seq++
	now := time.Unix(int64(s.seq), 0)
	return &transaction.Transaction{
		ID:                   p.ID,
		UserID:               p.UserID,
		Amount:               p.Amount,
		Type:                 p.Type,
		Vendor:               p.Vendor,
		Date:                 p.Date,
		Currency:             p.Currency,
		Category:             p.Category,
		DetailedCategory:     p.DetailedCategory,
		ExpenseType:          p.ExpenseType,
		PaymentMethod:        p.PaymentMethod,
		Notes:                p.Notes,
		Source:               p.Source,
		Confidence:           p.Confidence,
		Status:               p.Status,
		IsSummary:            p.IsSummary,
		DocumentID:           p.DocumentID,
		ReconciliationStatus: p.ReconciliationStatus,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (s *Store) Create(ctx context.Context, p transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	out, err := s.CreateBatch(ctx, []transaction.CreateTransactionParams{p})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *Store) CreateBatch(_ context.Context, params []transaction.CreateTransactionParams) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateBatch != nil {
		return nil, s.FailCreateBatch
	}
	for _, p := range params {
		if _, exists := s.transactions[p.ID]; exists {
			return nil, errors.New("duplicate transaction id")
		}
	}
	out := make([]*transaction.Transaction, 0, len(params))
	for _, p := range params {
		t := s.fromParams(p)
		s.transactions[t.ID] = t
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*transaction.Transaction, error) {
	return s.Get(id), nil
}

func (s *Store) ListByIDs(_ context.Context, userID int64, ids []string) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.sortedLocked(func(t *transaction.Transaction) bool {
		return t.UserID == userID && want[t.ID]
	}), nil
}

func (s *Store) ListByDocumentID(_ context.Context, userID int64, documentID string) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(t *transaction.Transaction) bool {
		return t.UserID == userID && t.DocumentID != nil && *t.DocumentID == documentID
	}), nil
}

func (s *Store) Update(_ context.Context, id string, p transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return nil, s.FailUpdate
	}
	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	if p.IsSummary != nil {
		t.IsSummary = *p.IsSummary
	}
	if p.HasDetails != nil {
		t.HasDetails = *p.HasDetails
	}
	if p.LinkedDocumentID != nil {
		v := *p.LinkedDocumentID
		t.LinkedDocumentID = &v
	}
	if p.ClearLinkedDocumentID {
		t.LinkedDocumentID = nil
	}
	if p.ReconciliationStatus != nil {
		t.ReconciliationStatus = *p.ReconciliationStatus
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	cp := *t
	return &cp, nil
}

func (s *Store) DeleteBatch(_ context.Context, userID int64, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeleteBatch != nil {
		return 0, s.FailDeleteBatch
	}
	var n int64
	for _, id := range ids {
		if t, ok := s.transactions[id]; ok && t.UserID == userID {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) FindSummaryCandidates(_ context.Context, c transaction.CandidateCriteria) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(func(t *transaction.Transaction) bool {
		return t.UserID == c.UserID &&
			t.Type == transaction.TypeExpense &&
			t.Status != transaction.StatusRejected &&
			t.IsSummary && !t.HasDetails &&
			!t.Date.Before(c.DateFrom) && !t.Date.After(c.DateTo)
	}), nil
}

func (s *Store) FindInWindow(_ context.Context, c transaction.WindowCriteria) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFindInWindow != nil {
		return nil, s.FailFindInWindow
	}
	return s.sortedLocked(func(t *transaction.Transaction) bool {
		if t.UserID != c.UserID || t.Amount < c.AmountMin || t.Amount > c.AmountMax {
			return false
		}
		if t.Date.Before(c.DateFrom) || t.Date.After(c.DateTo) {
			return false
		}
		if c.ExcludeDocumentID != "" && t.DocumentID != nil && *t.DocumentID == c.ExcludeDocumentID {
			return false
		}
		return true
	}), nil
}

func (s *Store) MarkDocumentMatched(_ context.Context, userID int64, documentID string, linked *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMarkMatched != nil {
		return 0, s.FailMarkMatched
	}
	var n int64
	for _, t := range s.transactions {
		if t.UserID == userID && t.DocumentID != nil && *t.DocumentID == documentID {
			t.ReconciliationStatus = transaction.ReconciliationMatched
			if linked != nil {
				v := *linked
				t.LinkedDocumentID = &v
			} else {
				t.LinkedDocumentID = nil
			}
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateDetails(_ context.Context, params []transaction.CreateDetailParams) ([]*transaction.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateDetails != nil {
		return nil, s.FailCreateDetails
	}
	out := make([]*transaction.Detail, 0, len(params))
	for _, p := range params {
		s.seq++
		d := &transaction.Detail{
			ID:                  p.ID,
			ParentTransactionID: p.ParentTransactionID,
			UserID:              p.UserID,
			Amount:              p.Amount,
			Vendor:              p.Vendor,
			Date:                p.Date,
			Notes:               p.Notes,
			Category:            p.Category,
			DetailedCategory:    p.DetailedCategory,
			ExpenseType:         p.ExpenseType,
			PaymentMethod:       p.PaymentMethod,
			Confidence:          p.Confidence,
			CreatedAt:           time.Unix(int64(s.seq), 0),
		}
		s.details[d.ID] = d
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListDetails(_ context.Context, parentID string) ([]*transaction.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*transaction.Detail
	for _, d := range s.details {
		if d.ParentTransactionID == parentID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteDetails(_ context.Context, parentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeleteDetails != nil {
		return 0, s.FailDeleteDetails
	}
	var n int64
	for id, d := range s.details {
		if d.ParentTransactionID == parentID {
			delete(s.details, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteDetailsByIDs(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.details[id]; ok {
			delete(s.details, id)
			n++
		}
	}
	return n, nil
}

var (
	_ transaction.Repository       = (*Store)(nil)
	_ transaction.DetailRepository = (*Store)(nil)
)
