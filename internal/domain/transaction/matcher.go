package transaction

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const (
	DefaultMatchThreshold = 0.5
	DefaultMatchLimit     = 3
	DefaultPoolWindowDays = 7
)

type Match struct {
	Transaction *Transaction `json:"transaction"`
	Score       float64      `json:"score"`
	Breakdown   Breakdown    `json:"breakdown"`
	Reasons     []string     `json:"reasons"`
}

type BatchResult struct {
	TransactionID string  `json:"transactionId"`
	Matches       []Match `json:"matches"`
	HasMatches    bool    `json:"hasMatches"`
	BestMatch     *Match  `json:"bestMatch"`
}

// MatchFinder ranks summary transactions against a new transaction. It holds
// no mutable state and is safe for concurrent use.
type MatchFinder struct {
	threshold  float64
	limit      int
	windowDays int
}

func NewMatchFinder(threshold float64, limit, windowDays int) *MatchFinder {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	if windowDays <= 0 {
		windowDays = DefaultPoolWindowDays
	}
	return &MatchFinder{threshold: threshold, limit: limit, windowDays: windowDays}
}

// FindMatches scores candidate against every pool entry and returns at most
// limit matches at or above the threshold, best first. Ties keep pool order.
func (f *MatchFinder) FindMatches(candidate *Transaction, pool []*Transaction) []Match {
	matches := []Match{}
	if candidate == nil {
		return matches
	}

	for _, existing := range pool {
		if existing == nil || existing.ID == candidate.ID {
			continue
		}
		s := Score(candidate, existing)
		if s.Total < f.threshold {
			continue
		}
		matches = append(matches, Match{
			Transaction: existing,
			Score:       s.Total,
			Breakdown:   s.Breakdown,
			Reasons:     s.Reasons,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > f.limit {
		matches = matches[:f.limit]
	}
	return matches
}

// FindMatchesForBatch matches every candidate against the same shared pool.
// Each candidate only sees the pool entries eligible for it, so the result
// for one candidate never depends on the others.
func (f *MatchFinder) FindMatchesForBatch(candidates, pool []*Transaction) []BatchResult {
	results := make([]BatchResult, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		matches := f.FindMatches(c, f.EligiblePool(c, pool))
		r := BatchResult{
			TransactionID: c.ID,
			Matches:       matches,
			HasMatches:    len(matches) > 0,
		}
		if r.HasMatches {
			best := matches[0]
			r.BestMatch = &best
		}
		results = append(results, r)
	}
	return results
}

// EligiblePool narrows pool to summaries a candidate may be merged into:
// unrejected expenses flagged as summary, still without details, dated
// within the window around the candidate.
func (f *MatchFinder) EligiblePool(candidate *Transaction, pool []*Transaction) []*Transaction {
	var out []*Transaction
	for _, t := range pool {
		if t == nil || t.ID == candidate.ID {
			continue
		}
		if t.Type != TypeExpense || t.Status == StatusRejected || !t.IsSummary || t.HasDetails {
			continue
		}
		if DaysBetween(candidate.Date, t.Date) > f.windowDays {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MatchService resolves persisted candidates and their shared pool before
// handing them to the MatchFinder.
type MatchService struct {
	repo   Repository
	finder *MatchFinder
}

func NewMatchService(repo Repository, finder *MatchFinder) *MatchService {
	return &MatchService{repo: repo, finder: finder}
}

func (s *MatchService) MatchBatch(ctx context.Context, userID int64, ids []string) ([]BatchResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: transaction ids are required", ErrValidation)
	}

	found, err := s.repo.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: none of the requested transactions exist", ErrNotFound)
	}

	byID := make(map[string]*Transaction, len(found))
	var from, to time.Time
	for _, t := range found {
		byID[t.ID] = t
		if from.IsZero() || t.Date.Before(from) {
			from = t.Date
		}
		if to.IsZero() || t.Date.After(to) {
			to = t.Date
		}
	}

	window := time.Duration(s.finder.windowDays+1) * 24 * time.Hour
	pool, err := s.repo.FindSummaryCandidates(ctx, CandidateCriteria{
		UserID:   userID,
		DateFrom: from.Add(-window),
		DateTo:   to.Add(window),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}

	// keep the caller's ordering
	ordered := make([]*Transaction, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, t)
			seen[id] = true
		}
	}

	return s.finder.FindMatchesForBatch(ordered, pool), nil
}
