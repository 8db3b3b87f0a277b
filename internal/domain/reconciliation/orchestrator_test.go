package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"kesef/internal/domain/document"
	"kesef/internal/domain/transaction"
	"kesef/internal/domain/transaction/transactiontest"
)

type MockDocumentRepo struct {
	docs     map[string]*document.Document
	pending  []document.CreditDocumentRef
	resolved []document.ResolveCriteria

	GetByIDErr error
	ResolveErr error
	ListErr    error
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*document.Document, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	return m.docs[id], nil
}

func (m *MockDocumentRepo) UpdateStatus(ctx context.Context, id, status string) error { return nil }

func (m *MockDocumentRepo) SetBillingMetadata(ctx context.Context, id string, billing *document.BillingMetadata) error {
	return nil
}

func (m *MockDocumentRepo) ListUnreconciled(ctx context.Context, userID int64) ([]document.CreditDocumentRef, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []document.CreditDocumentRef
	for _, r := range m.pending {
		if userID == 0 || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockDocumentRepo) ResolveMissingRequests(ctx context.Context, c document.ResolveCriteria) (int64, error) {
	m.resolved = append(m.resolved, c)
	if m.ResolveErr != nil {
		return 0, m.ResolveErr
	}
	return 1, nil
}

type recordingNotifier struct {
	calls int
	bank  string
	err   error
}

func (n *recordingNotifier) NotifyReconciled(ctx context.Context, userID int64, creditDocumentID, bankTransactionID string, amount float64) error {
	n.calls++
	n.bank = bankTransactionID
	return n.err
}

const (
	userID    = int64(7)
	creditDoc = "credit-doc"
	bankDoc   = "bank-doc"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func creditDocument(billing *document.BillingMetadata) *document.Document {
	return &document.Document{ID: creditDoc, UserID: userID, Type: document.TypeCreditStatement, Billing: billing}
}

func bankRow(id, vendor string, amount float64, date time.Time) *transaction.Transaction {
	doc := bankDoc
	return &transaction.Transaction{
		ID: id, UserID: userID, Amount: amount, Vendor: vendor, Date: date,
		Type: transaction.TypeExpense, Status: transaction.StatusConfirmed,
		Source: transaction.SourceBankImport, DocumentID: &doc,
		ReconciliationStatus: transaction.ReconciliationUnmatched,
	}
}

func statementRow(id string, amount float64) *transaction.Transaction {
	doc := creditDoc
	return &transaction.Transaction{
		ID: id, UserID: userID, Amount: amount, Vendor: "merchant " + id, Date: day(1),
		Type: transaction.TypeExpense, Status: transaction.StatusProposed,
		Source: transaction.SourceCreditImport, DocumentID: &doc,
		ReconciliationStatus: transaction.ReconciliationUnmatched,
	}
}

func seededStore() *transactiontest.Store {
	s := transactiontest.NewStore()
	s.Put(bankRow("bank-1", "ויזה כאל 1234", 1500.00, day(10)))
	s.Put(bankRow("other", "סופר פארם", 1500.00, day(10)))
	s.Put(statementRow("s1", 700))
	s.Put(statementRow("s2", 800))
	return s
}

func defaultBilling() *document.BillingMetadata {
	return &document.BillingMetadata{NextBillingDate: "10/03/2024", NextBillingAmount: 1500, CardLast4: "1234"}
}

func TestReconcile_MatchesAndAbsorbsBankCharge(t *testing.T) {
	store := seededStore()
	docs := &MockDocumentRepo{docs: map[string]*document.Document{creditDoc: creditDocument(defaultBilling())}}
	notifier := &recordingNotifier{}
	o := NewOrchestrator(store, docs, notifier, Options{})

	res := o.Reconcile(context.Background(), userID, creditDoc)

	if res.Outcome != OutcomeMatched {
		t.Fatalf("Outcome = %s (%s), want matched", res.Outcome, res.Reason)
	}
	if res.BankTransactionID != "bank-1" {
		t.Errorf("BankTransactionID = %s, want bank-1", res.BankTransactionID)
	}
	if res.LinkedCount != 2 {
		t.Errorf("LinkedCount = %d, want 2", res.LinkedCount)
	}
	if store.Get("bank-1") != nil {
		t.Error("bank charge should be deleted")
	}
	if store.Get("other") == nil {
		t.Error("non-card transaction must be untouched")
	}
	for _, id := range []string{"s1", "s2"} {
		row := store.Get(id)
		if row.ReconciliationStatus != transaction.ReconciliationMatched {
			t.Errorf("%s status = %s, want matched", id, row.ReconciliationStatus)
		}
		if row.LinkedDocumentID == nil || *row.LinkedDocumentID != bankDoc {
			t.Errorf("%s linked document = %v, want %s", id, row.LinkedDocumentID, bankDoc)
		}
	}
	if notifier.calls != 1 || notifier.bank != "bank-1" {
		t.Errorf("notifier calls = %d bank = %s", notifier.calls, notifier.bank)
	}
	if len(docs.resolved) != 1 {
		t.Fatalf("resolve calls = %d, want 1", len(docs.resolved))
	}
	if got := docs.resolved[0]; got.CardLast4 != "1234" || !got.PeriodMonth.Equal(day(1)) {
		t.Errorf("resolve criteria = %+v", got)
	}
}

func TestReconcile_IsIdempotent(t *testing.T) {
	store := seededStore()
	docs := &MockDocumentRepo{docs: map[string]*document.Document{creditDoc: creditDocument(defaultBilling())}}
	o := NewOrchestrator(store, docs, nil, Options{})

	first := o.Reconcile(context.Background(), userID, creditDoc)
	if !first.Matched() {
		t.Fatalf("first run outcome = %s (%s)", first.Outcome, first.Reason)
	}
	before := len(store.All())

	second := o.Reconcile(context.Background(), userID, creditDoc)
	if second.Outcome != OutcomeSkipped {
		t.Errorf("second run outcome = %s, want skipped", second.Outcome)
	}
	if after := len(store.All()); after != before {
		t.Errorf("second run changed row count %d -> %d", before, after)
	}
}

func TestReconcile_PicksClosestAmount(t *testing.T) {
	store := transactiontest.NewStore()
	store.Put(bankRow("far", "VISA 1234", 1520.00, day(10)))
	store.Put(bankRow("near", "VISA 1234", 1499.00, day(11)))
	store.Put(bankRow("tie", "VISA 1234", 1501.00, day(9)))
	docs := &MockDocumentRepo{docs: map[string]*document.Document{creditDoc: creditDocument(defaultBilling())}}

	res := NewOrchestrator(store, docs, nil, Options{}).Reconcile(context.Background(), userID, creditDoc)

	if res.BankTransactionID != "near" {
		t.Errorf("BankTransactionID = %s, want near (earliest inserted of the tied closest)", res.BankTransactionID)
	}
	if res.CandidatesFound != 3 {
		t.Errorf("CandidatesFound = %d, want 3", res.CandidatesFound)
	}
	if res.Difference != 1 {
		t.Errorf("Difference = %v, want 1", res.Difference)
	}
}

func TestReconcile_Skips(t *testing.T) {
	tests := []struct {
		name  string
		doc   *document.Document
		setup func(*transactiontest.Store)
	}{
		{
			name: "document missing",
			doc:  nil,
		},
		{
			name: "other user's document",
			doc:  &document.Document{ID: creditDoc, UserID: 99, Type: document.TypeCreditStatement, Billing: defaultBilling()},
		},
		{
			name: "not a credit statement",
			doc:  &document.Document{ID: creditDoc, UserID: userID, Type: document.TypeBankStatement, Billing: defaultBilling()},
		},
		{
			name: "no billing metadata",
			doc:  creditDocument(nil),
		},
		{
			name: "bad billing date",
			doc:  creditDocument(&document.BillingMetadata{NextBillingDate: "2024/13/45", NextBillingAmount: 1500}),
		},
		{
			name: "amount outside tolerance",
			doc:  creditDocument(defaultBilling()),
			setup: func(s *transactiontest.Store) {
				s.Put(bankRow("b", "VISA 1234", 1540, day(10)))
			},
		},
		{
			name: "date outside tolerance",
			doc:  creditDocument(defaultBilling()),
			setup: func(s *transactiontest.Store) {
				s.Put(bankRow("b", "VISA 1234", 1500, day(12)))
			},
		},
		{
			name: "wrong card",
			doc:  creditDocument(defaultBilling()),
			setup: func(s *transactiontest.Store) {
				s.Put(bankRow("b", "VISA 9876", 1500, day(10)))
			},
		},
		{
			name: "statement's own row",
			doc:  creditDocument(&document.BillingMetadata{NextBillingDate: "01/03/2024", NextBillingAmount: 700}),
			setup: func(s *transactiontest.Store) {
				row := statementRow("own", 700)
				row.Vendor = "VISA"
				s.Put(row)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := transactiontest.NewStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			docs := &MockDocumentRepo{docs: map[string]*document.Document{}}
			if tt.doc != nil {
				docs.docs[creditDoc] = tt.doc
			}
			notifier := &recordingNotifier{}

			res := NewOrchestrator(store, docs, notifier, Options{}).Reconcile(context.Background(), userID, creditDoc)

			if res.Outcome != OutcomeSkipped {
				t.Errorf("Outcome = %s (%s), want skipped", res.Outcome, res.Reason)
			}
			if res.Reason == "" {
				t.Error("skipped result should carry a reason")
			}
			if notifier.calls != 0 {
				t.Error("notifier must not run when nothing matched")
			}
		})
	}
}

func TestReconcile_FailuresAreReported(t *testing.T) {
	boom := errors.New("db down")

	tests := []struct {
		name       string
		docErr     error
		configure  func(*transactiontest.Store)
		bankExists bool
	}{
		{name: "document lookup", docErr: boom, bankExists: true},
		{name: "window search", configure: func(s *transactiontest.Store) { s.FailFindInWindow = boom }, bankExists: true},
		{name: "summary update", configure: func(s *transactiontest.Store) { s.FailUpdate = boom }, bankExists: true},
		{name: "absorb", configure: func(s *transactiontest.Store) { s.FailDeleteBatch = boom }, bankExists: true},
		{name: "mark matched", configure: func(s *transactiontest.Store) { s.FailMarkMatched = boom }, bankExists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			if tt.configure != nil {
				tt.configure(store)
			}
			docs := &MockDocumentRepo{
				docs:       map[string]*document.Document{creditDoc: creditDocument(defaultBilling())},
				GetByIDErr: tt.docErr,
			}
			notifier := &recordingNotifier{}

			res := NewOrchestrator(store, docs, notifier, Options{}).Reconcile(context.Background(), userID, creditDoc)

			if res.Outcome != OutcomeFailed {
				t.Errorf("Outcome = %s, want failed", res.Outcome)
			}
			if (store.Get("bank-1") != nil) != tt.bankExists {
				t.Errorf("bank charge exists = %v, want %v", store.Get("bank-1") != nil, tt.bankExists)
			}
			if notifier.calls != 0 {
				t.Error("notifier must not run on failure")
			}
		})
	}
}

func TestReconcile_FollowUpFailuresKeepMatch(t *testing.T) {
	store := seededStore()
	docs := &MockDocumentRepo{
		docs:       map[string]*document.Document{creditDoc: creditDocument(defaultBilling())},
		ResolveErr: errors.New("resolve failed"),
	}
	notifier := &recordingNotifier{err: errors.New("fcm down")}

	res := NewOrchestrator(store, docs, notifier, Options{}).Reconcile(context.Background(), userID, creditDoc)

	if !res.Matched() {
		t.Errorf("Outcome = %s, want matched", res.Outcome)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestReconcile_WithoutCardLast4(t *testing.T) {
	store := transactiontest.NewStore()
	store.Put(bankRow("b", "ישראכרט", 1500, day(10)))
	billing := &document.BillingMetadata{NextBillingDate: "10/03/2024", NextBillingAmount: 1500}
	docs := &MockDocumentRepo{docs: map[string]*document.Document{creditDoc: creditDocument(billing)}}

	res := NewOrchestrator(store, docs, nil, Options{}).Reconcile(context.Background(), userID, creditDoc)

	if !res.Matched() {
		t.Errorf("Outcome = %s (%s), want matched", res.Outcome, res.Reason)
	}
}

func TestSweep(t *testing.T) {
	store := seededStore()
	docs := &MockDocumentRepo{
		docs: map[string]*document.Document{
			creditDoc: creditDocument(defaultBilling()),
			"no-meta": {ID: "no-meta", UserID: userID, Type: document.TypeCreditStatement},
		},
		pending: []document.CreditDocumentRef{
			{UserID: userID, DocumentID: creditDoc},
			{UserID: userID, DocumentID: "no-meta"},
			{UserID: 99, DocumentID: "elsewhere"},
		},
	}
	o := NewOrchestrator(store, docs, nil, Options{})

	summary, err := o.Sweep(context.Background(), userID)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if summary.Checked != 2 || summary.Matched != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}

	docs.ListErr = errors.New("db down")
	if _, err := o.Sweep(context.Background(), 0); err == nil {
		t.Error("expected list error")
	}
}
