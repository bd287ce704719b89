package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/fuzzy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/keyword"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// SQLiteStore persists records in calls, keyword_hits and category_scores tables.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateReportsStored(n)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec model.Record) error { //nolint:gocritic // hugeParam: record is written field by field
	if rec.CallID == "" {
		return ErrEmptyCallID
	}
	r := rec.Report

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"keyword_hits", "category_scores", "calls"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE call_id = ?", rec.CallID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO calls (
            call_id, call_type, agent, scored_at,
            fuzzy_threshold, semantic_threshold, keyword_confidence_threshold,
            overall_rule_score, overall_semantic_score, degraded
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID,
		rec.CallType,
		rec.Agent,
		rec.ScoredAt.UTC().Format(time.RFC3339Nano),
		r.Thresholds.Fuzzy,
		r.Thresholds.Semantic,
		r.Thresholds.KeywordConfidence,
		r.OverallRuleScore,
		r.OverallSemanticScore,
		r.Degraded,
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}

	for i, h := range r.KeywordHits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO keyword_hits (call_id, seq, phrase, tier, confidence, match_type, position, length)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.CallID, i, h.Phrase, string(h.Tier), h.Confidence, string(h.MatchType), h.Position, h.Length)
		if err != nil {
			return fmt.Errorf("insert keyword hit: %w", err)
		}
	}

	for _, set := range [][]report.CategoryScore{r.RuleScores, r.SemanticScores} {
		for i, cs := range set {
			phrases, err := json.Marshal(nonNil(cs.MatchedPhrases))
			if err != nil {
				return fmt.Errorf("encode matched phrases: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO category_scores (call_id, method, seq, category, score, confidence, matched_phrases, explanation, degraded)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.CallID, cs.Method.String(), i, cs.Category, cs.Score, cs.Confidence, string(phrases), cs.Explanation, cs.Degraded)
			if err != nil {
				return fmt.Errorf("insert category score: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateReportsStored(n)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, callID string) (model.Record, error) {
	var (
		rec      model.Record
		scoredAt string
	)
	r := &rec.Report
	err := s.db.QueryRowContext(ctx,
		`SELECT call_id, call_type, agent, scored_at,
                fuzzy_threshold, semantic_threshold, keyword_confidence_threshold,
                overall_rule_score, overall_semantic_score, degraded
         FROM calls WHERE call_id = ?`, callID).Scan(
		&rec.CallID, &rec.CallType, &rec.Agent, &scoredAt,
		&r.Thresholds.Fuzzy, &r.Thresholds.Semantic, &r.Thresholds.KeywordConfidence,
		&r.OverallRuleScore, &r.OverallSemanticScore, &r.Degraded,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, ErrNotFound
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("load call: %w", err)
	}
	if rec.ScoredAt, err = time.Parse(time.RFC3339Nano, scoredAt); err != nil {
		return model.Record{}, fmt.Errorf("parse scored_at: %w", err)
	}

	r.CallID = rec.CallID
	r.CallType = rec.CallType
	r.RuleBand = report.BandFor(r.OverallRuleScore)
	r.SemanticBand = report.BandFor(r.OverallSemanticScore)
	if r.KeywordHits, err = s.loadHits(ctx, callID); err != nil {
		return model.Record{}, err
	}
	if r.RuleScores, r.SemanticScores, err = s.loadScores(ctx, callID); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) loadHits(ctx context.Context, callID string) ([]keyword.Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phrase, tier, confidence, match_type, position, length
         FROM keyword_hits WHERE call_id = ? ORDER BY seq`, callID)
	if err != nil {
		return nil, fmt.Errorf("query keyword hits: %w", err)
	}
	defer rows.Close()

	hits := []keyword.Hit{}
	for rows.Next() {
		var (
			h         keyword.Hit
			tier      string
			matchType string
		)
		if err := rows.Scan(&h.Phrase, &tier, &h.Confidence, &matchType, &h.Position, &h.Length); err != nil {
			return nil, fmt.Errorf("scan keyword hit: %w", err)
		}
		h.Tier = taxonomy.Tier(tier)
		h.MatchType = fuzzy.MatchType(matchType)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *SQLiteStore) loadScores(ctx context.Context, callID string) (ruleSet, semantics []report.CategoryScore, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, category, score, confidence, matched_phrases, explanation, degraded
         FROM category_scores WHERE call_id = ? ORDER BY method, seq`, callID)
	if err != nil {
		return nil, nil, fmt.Errorf("query category scores: %w", err)
	}
	defer rows.Close()

	ruleSet, semantics = []report.CategoryScore{}, []report.CategoryScore{}
	for rows.Next() {
		var (
			cs      report.CategoryScore
			method  string
			phrases string
		)
		if err := rows.Scan(&method, &cs.Category, &cs.Score, &cs.Confidence, &phrases, &cs.Explanation, &cs.Degraded); err != nil {
			return nil, nil, fmt.Errorf("scan category score: %w", err)
		}
		if err := cs.Method.UnmarshalText([]byte(method)); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(phrases), &cs.MatchedPhrases); err != nil {
			return nil, nil, fmt.Errorf("decode matched phrases: %w", err)
		}
		if cs.Method == report.MethodRule {
			ruleSet = append(ruleSet, cs)
		} else {
			semantics = append(semantics, cs)
		}
	}
	return ruleSet, semantics, rows.Err()
}

func (s *SQLiteStore) Review(ctx context.Context, limit int) ([]types.ReviewEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, call_type, agent, scored_at, overall_rule_score, overall_semantic_score, degraded
         FROM calls ORDER BY overall_rule_score ASC, call_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	defer rows.Close()

	out := []types.ReviewEntry{}
	for rows.Next() {
		var (
			rec      model.Record
			scoredAt string
		)
		if err := rows.Scan(&rec.CallID, &rec.CallType, &rec.Agent, &scoredAt,
			&rec.Report.OverallRuleScore, &rec.Report.OverallSemanticScore, &rec.Report.Degraded); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if rec.ScoredAt, err = time.Parse(time.RFC3339Nano, scoredAt); err != nil {
			return nil, fmt.Errorf("parse scored_at: %w", err)
		}
		rec.Report.RuleBand = report.BandFor(rec.Report.OverallRuleScore)
		out = append(out, reviewEntry(len(out)+1, &rec))
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM calls").Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}

// scored_at is stored as RFC 3339 in UTC, so its first seven characters are the year and month.
const agentSummaryQuery = `
SELECT agent,
       CAST(substr(scored_at, 1, 4) AS INTEGER) AS year,
       CAST(substr(scored_at, 6, 2) AS INTEGER) AS month,
       COUNT(1), SUM(overall_rule_score), SUM(overall_semantic_score), SUM(degraded)
FROM calls
WHERE agent <> ''
  AND (?1 = '' OR agent = ?1)
  AND (?2 = 0 OR CAST(substr(scored_at, 1, 4) AS INTEGER) = ?2)
GROUP BY agent, year, month
ORDER BY agent ASC, year DESC, month DESC`

func (s *SQLiteStore) AgentSummary(ctx context.Context, filter types.AgentFilter) ([]types.AgentSummary, error) {
	rows, err := s.db.QueryContext(ctx, agentSummaryQuery, filter.Agent, filter.Year)
	if err != nil {
		return nil, fmt.Errorf("query agent summary: %w", err)
	}
	defer rows.Close()

	out := []types.AgentSummary{}
	for rows.Next() {
		var t monthTotals
		if err := rows.Scan(&t.agent, &t.year, &t.month, &t.calls, &t.ruleSum, &t.semanticSum, &t.degraded); err != nil {
			return nil, fmt.Errorf("scan agent summary: %w", err)
		}
		out = append(out, t.summary())
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
