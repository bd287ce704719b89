package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// reviewKey orders the review index.
type reviewKey struct {
	score  float64
	callID string
}

func compareKeys(a, b reviewKey) int {
	if c := cmp.Compare(a.score, b.score); c != 0 {
		return c
	}
	return cmp.Compare(a.callID, b.callID)
}

// MemoryStore keeps records in a map plus an index sorted for review.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]model.Record
	index []reviewKey
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]model.Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec model.Record) error { //nolint:gocritic // hugeParam: record is copied into the store
	if rec.CallID == "" {
		return ErrEmptyCallID
	}
	rec.Report = rec.Report.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[rec.CallID]; ok {
		s.remove(reviewKey{old.Report.OverallRuleScore, old.CallID})
	}
	key := reviewKey{rec.Report.OverallRuleScore, rec.CallID}
	i, _ := slices.BinarySearchFunc(s.index, key, compareKeys)
	s.index = slices.Insert(s.index, i, key)
	s.byID[rec.CallID] = rec

	metrics.UpdateReportsStored(len(s.byID))
	return nil
}

func (s *MemoryStore) remove(key reviewKey) {
	if i, ok := slices.BinarySearchFunc(s.index, key, compareKeys); ok {
		s.index = slices.Delete(s.index, i, i+1)
	}
}

func (s *MemoryStore) Get(_ context.Context, callID string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[callID]
	if !ok {
		return model.Record{}, ErrNotFound
	}
	rec.Report = rec.Report.Clone()
	return rec, nil
}

func (s *MemoryStore) Review(_ context.Context, limit int) ([]types.ReviewEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.index))
	out := make([]types.ReviewEntry, 0, n)
	for i, key := range s.index[:n] {
		rec := s.byID[key.callID]
		out = append(out, reviewEntry(i+1, &rec))
	}
	return out, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryStore) AgentSummary(_ context.Context, filter types.AgentFilter) ([]types.AgentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type monthKey struct {
		agent       string
		year, month int
	}
	totals := make(map[monthKey]*monthTotals)
	for _, key := range s.index {
		rec := s.byID[key.callID]
		at := rec.ScoredAt.UTC()
		if rec.Agent == "" || (filter.Agent != "" && rec.Agent != filter.Agent) ||
			(filter.Year != 0 && at.Year() != filter.Year) {
			continue
		}
		mk := monthKey{rec.Agent, at.Year(), int(at.Month())}
		t, ok := totals[mk]
		if !ok {
			t = &monthTotals{agent: mk.agent, year: mk.year, month: mk.month}
			totals[mk] = t
		}
		t.calls++
		t.ruleSum += rec.Report.OverallRuleScore
		t.semanticSum += rec.Report.OverallSemanticScore
		if rec.Report.Degraded {
			t.degraded++
		}
	}

	out := make([]types.AgentSummary, 0, len(totals))
	for _, t := range totals {
		out = append(out, t.summary())
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
