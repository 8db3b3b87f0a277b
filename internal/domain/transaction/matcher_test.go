package transaction

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type MockTransactionRepo struct {
	CreateFunc                func(ctx context.Context, params CreateTransactionParams) (*Transaction, error)
	CreateBatchFunc           func(ctx context.Context, params []CreateTransactionParams) ([]*Transaction, error)
	GetByIDFunc               func(ctx context.Context, id string) (*Transaction, error)
	ListByIDsFunc             func(ctx context.Context, userID int64, ids []string) ([]*Transaction, error)
	ListByDocumentIDFunc      func(ctx context.Context, userID int64, documentID string) ([]*Transaction, error)
	UpdateFunc                func(ctx context.Context, id string, params UpdateTransactionParams) (*Transaction, error)
	DeleteBatchFunc           func(ctx context.Context, userID int64, ids []string) (int64, error)
	FindSummaryCandidatesFunc func(ctx context.Context, criteria CandidateCriteria) ([]*Transaction, error)
	FindInWindowFunc          func(ctx context.Context, criteria WindowCriteria) ([]*Transaction, error)
	MarkDocumentMatchedFunc   func(ctx context.Context, userID int64, documentID string, linked *string) (int64, error)
}

func (m *MockTransactionRepo) Create(ctx context.Context, params CreateTransactionParams) (*Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockTransactionRepo) CreateBatch(ctx context.Context, params []CreateTransactionParams) ([]*Transaction, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockTransactionRepo) ListByIDs(ctx context.Context, userID int64, ids []string) ([]*Transaction, error) {
	if m.ListByIDsFunc != nil {
		return m.ListByIDsFunc(ctx, userID, ids)
	}
	return nil, nil
}
func (m *MockTransactionRepo) ListByDocumentID(ctx context.Context, userID int64, documentID string) ([]*Transaction, error) {
	if m.ListByDocumentIDFunc != nil {
		return m.ListByDocumentIDFunc(ctx, userID, documentID)
	}
	return nil, nil
}
func (m *MockTransactionRepo) Update(ctx context.Context, id string, params UpdateTransactionParams) (*Transaction, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params)
	}
	return nil, nil
}
func (m *MockTransactionRepo) DeleteBatch(ctx context.Context, userID int64, ids []string) (int64, error) {
	if m.DeleteBatchFunc != nil {
		return m.DeleteBatchFunc(ctx, userID, ids)
	}
	return 0, nil
}
func (m *MockTransactionRepo) FindSummaryCandidates(ctx context.Context, criteria CandidateCriteria) ([]*Transaction, error) {
	if m.FindSummaryCandidatesFunc != nil {
		return m.FindSummaryCandidatesFunc(ctx, criteria)
	}
	return nil, nil
}
func (m *MockTransactionRepo) FindInWindow(ctx context.Context, criteria WindowCriteria) ([]*Transaction, error) {
	if m.FindInWindowFunc != nil {
		return m.FindInWindowFunc(ctx, criteria)
	}
	return nil, nil
}
func (m *MockTransactionRepo) MarkDocumentMatched(ctx context.Context, userID int64, documentID string, linked *string) (int64, error) {
	if m.MarkDocumentMatchedFunc != nil {
		return m.MarkDocumentMatchedFunc(ctx, userID, documentID, linked)
	}
	return 0, nil
}

func summary(id string, amount float64, date, vendor string) *Transaction {
	t := txn(id, amount, date, vendor)
	t.IsSummary = true
	t.Source = SourceBankImport
	return t
}

func TestNewMatchFinder_Defaults(t *testing.T) {
	f := NewMatchFinder(-1, 0, 0)
	if f.threshold != DefaultMatchThreshold || f.limit != DefaultMatchLimit || f.windowDays != DefaultPoolWindowDays {
		t.Errorf("NewMatchFinder defaults = %+v", f)
	}
}

func TestFindMatches_TopKSortedAboveThreshold(t *testing.T) {
	f := NewMatchFinder(DefaultMatchThreshold, DefaultMatchLimit, DefaultPoolWindowDays)
	candidate := txn("c", 100, "2024-03-10", "ikea")

	pool := []*Transaction{
		summary("far", 400, "2024-04-30", "x"),        // 0.2*0.4 + 0.2*0.3 = 0.14
		summary("ok", 104, "2024-03-13", "y"),         // 0.32 + 0.24 = 0.56
		summary("best", 100, "2024-03-10", "IKEA"),    // 0.9
		summary("good", 100, "2024-03-11", "other"),   // 0.7
		summary("good2", 101, "2024-03-10", "other2"), // 0.7
	}

	got := f.FindMatches(candidate, pool)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	ids := []string{got[0].Transaction.ID, got[1].Transaction.ID, got[2].Transaction.ID}
	want := []string{"best", "good", "good2"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	for i, m := range got {
		if m.Score < DefaultMatchThreshold {
			t.Errorf("match %d score %v below threshold", i, m.Score)
		}
		if i > 0 && m.Score > got[i-1].Score {
			t.Errorf("match %d not sorted: %v > %v", i, m.Score, got[i-1].Score)
		}
	}
}

func TestFindMatches_ExcludesSelfAndNil(t *testing.T) {
	f := NewMatchFinder(0.5, 3, 7)
	candidate := summary("same", 100, "2024-03-10", "shop")

	got := f.FindMatches(candidate, []*Transaction{nil, candidate})
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	if got == nil {
		t.Error("FindMatches returned nil slice, want empty")
	}
}

func TestFindMatches_NilCandidate(t *testing.T) {
	f := NewMatchFinder(0.5, 3, 7)
	if got := f.FindMatches(nil, []*Transaction{summary("a", 1, "2024-01-01", "")}); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestEligiblePool(t *testing.T) {
	f := NewMatchFinder(0.5, 3, 7)
	candidate := txn("c", 100, "2024-03-10", "shop")

	income := summary("income", 100, "2024-03-10", "")
	income.Type = TypeIncome
	rejected := summary("rejected", 100, "2024-03-10", "")
	rejected.Status = StatusRejected
	plain := txn("plain", 100, "2024-03-10", "")
	linked := summary("linked", 100, "2024-03-10", "")
	linked.HasDetails = true
	late := summary("late", 100, "2024-03-18", "")
	edge := summary("edge", 100, "2024-03-17", "")
	keep := summary("keep", 100, "2024-03-09", "")

	got := f.EligiblePool(candidate, []*Transaction{income, rejected, plain, linked, late, edge, keep, candidate})

	var ids []string
	for _, t := range got {
		ids = append(ids, t.ID)
	}
	want := []string{"edge", "keep"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("eligible = %v, want %v", ids, want)
	}
}

func TestFindMatchesForBatch_OrderIndependent(t *testing.T) {
	f := NewMatchFinder(0.5, 3, 7)
	pool := []*Transaction{
		summary("s1", 500, "2024-03-10", "visa"),
		summary("s2", 126, "2024-03-12", "cafe"),
		summary("s3", 121, "2024-03-12", "cafe landwer"),
		summary("s4", 80, "2024-05-01", "gym"),
	}
	candidates := []*Transaction{
		txn("c1", 500, "2024-03-11", "visa cal"),
		txn("c2", 120, "2024-03-12", "Cafe Landwer"),
		txn("c3", 80, "2024-03-01", "gym"),
	}

	forward := f.FindMatchesForBatch(candidates, pool)
	reversed := f.FindMatchesForBatch([]*Transaction{candidates[2], candidates[1], candidates[0]}, pool)

	byID := func(rs []BatchResult) map[string]BatchResult {
		m := make(map[string]BatchResult)
		for _, r := range rs {
			m[r.TransactionID] = r
		}
		return m
	}
	fw, rv := byID(forward), byID(reversed)
	if len(fw) != 3 {
		t.Fatalf("results = %d, want 3", len(fw))
	}
	for id, r := range fw {
		if !reflect.DeepEqual(r, rv[id]) {
			t.Errorf("result for %s depends on order:\n%+v\n%+v", id, r, rv[id])
		}
	}

	if !fw["c1"].HasMatches || fw["c1"].BestMatch.Transaction.ID != "s1" {
		t.Errorf("c1 best match = %+v, want s1", fw["c1"].BestMatch)
	}
	if fw["c2"].BestMatch == nil || fw["c2"].BestMatch.Transaction.ID != "s3" {
		t.Errorf("c2 best match = %+v, want s3", fw["c2"].BestMatch)
	}
	if fw["c3"].HasMatches || fw["c3"].BestMatch != nil {
		t.Errorf("c3 should have no matches outside the window, got %+v", fw["c3"])
	}
	if fw["c3"].Matches == nil {
		t.Error("c3 matches should be an empty slice, not nil")
	}
}

func TestMatchService_MatchBatch(t *testing.T) {
	c1 := txn("c1", 500, "2024-03-11", "visa")
	c2 := txn("c2", 120, "2024-03-20", "cafe")
	var gotCriteria CandidateCriteria

	repo := &MockTransactionRepo{
		ListByIDsFunc: func(ctx context.Context, userID int64, ids []string) ([]*Transaction, error) {
			return []*Transaction{c2, c1}, nil
		},
		FindSummaryCandidatesFunc: func(ctx context.Context, criteria CandidateCriteria) ([]*Transaction, error) {
			gotCriteria = criteria
			return []*Transaction{summary("s1", 500, "2024-03-10", "visa")}, nil
		},
	}

	svc := NewMatchService(repo, NewMatchFinder(0.5, 3, 7))
	results, err := svc.MatchBatch(context.Background(), 1, []string{"c1", "missing", "c2"})
	if err != nil {
		t.Fatalf("MatchBatch() error = %v", err)
	}
	if len(results) != 2 || results[0].TransactionID != "c1" || results[1].TransactionID != "c2" {
		t.Fatalf("results = %+v, want c1 then c2", results)
	}
	if !results[0].HasMatches {
		t.Error("c1 should match s1")
	}
	if gotCriteria.UserID != 1 {
		t.Errorf("criteria.UserID = %d, want 1", gotCriteria.UserID)
	}
	if !gotCriteria.DateFrom.Before(day("2024-03-04")) || !gotCriteria.DateTo.After(day("2024-03-27")) {
		t.Errorf("criteria window %v..%v does not cover both candidates", gotCriteria.DateFrom, gotCriteria.DateTo)
	}
}

func TestMatchService_Errors(t *testing.T) {
	svc := NewMatchService(&MockTransactionRepo{}, NewMatchFinder(0.5, 3, 7))

	if _, err := svc.MatchBatch(context.Background(), 1, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty ids: err = %v, want ErrValidation", err)
	}
	if _, err := svc.MatchBatch(context.Background(), 1, []string{"x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ids: err = %v, want ErrNotFound", err)
	}

	boom := errors.New("db down")
	svc = NewMatchService(&MockTransactionRepo{
		ListByIDsFunc: func(ctx context.Context, userID int64, ids []string) ([]*Transaction, error) {
			return nil, boom
		},
	}, NewMatchFinder(0.5, 3, 7))
	if _, err := svc.MatchBatch(context.Background(), 1, []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("repo failure: err = %v, want wrapped db error", err)
	}
}
