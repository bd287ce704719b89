// Package repository persists scored calls and lists them for QA review.
package repository

import (
	"cmp"
	"context"
	"io"
	"math"
	"slices"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

// Store keeps one record per call ID. Saving an existing call ID replaces it.
type Store interface {
	Save(ctx context.Context, rec model.Record) error

	// Get returns ErrNotFound if the call is unknown.
	Get(ctx context.Context, callID string) (model.Record, error)

	// Review returns up to limit calls, lowest overall rule score first and ties by
	// call ID. limit < 1 fails with ErrInvalidLimit.
	Review(ctx context.Context, limit int) ([]types.ReviewEntry, error)

	Count(ctx context.Context) (int, error)

	// AgentSummary groups calls by agent and UTC calendar month of ScoredAt, ordered
	// by agent, then newest month first. Calls without an agent are left out.
	AgentSummary(ctx context.Context, filter types.AgentFilter) ([]types.AgentSummary, error)

	io.Closer
}

func reviewEntry(rank int, rec *model.Record) types.ReviewEntry {
	return types.ReviewEntry{
		Rank:                 rank,
		CallID:               rec.CallID,
		CallType:             rec.CallType,
		Agent:                rec.Agent,
		OverallRuleScore:     rec.Report.OverallRuleScore,
		OverallSemanticScore: rec.Report.OverallSemanticScore,
		RuleBand:             rec.Report.RuleBand,
		Degraded:             rec.Report.Degraded,
		ScoredAt:             rec.ScoredAt,
	}
}

// monthTotals accumulates one agent's calls in one month.
type monthTotals struct {
	agent       string
	year, month int
	calls       int
	degraded    int
	ruleSum     float64
	semanticSum float64
}

func (t *monthTotals) summary() types.AgentSummary {
	avgRule := t.ruleSum / float64(t.calls)
	return types.AgentSummary{
		Agent:            t.agent,
		Year:             t.year,
		Month:            t.month,
		Calls:            t.calls,
		AvgRuleScore:     round2(avgRule),
		AvgSemanticScore: round2(t.semanticSum / float64(t.calls)),
		DegradedCalls:    t.degraded,
		RuleBand:         report.BandFor(avgRule),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func sortSummaries(out []types.AgentSummary) {
	slices.SortFunc(out, func(a, b types.AgentSummary) int {
		if c := cmp.Compare(a.Agent, b.Agent); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})
}
