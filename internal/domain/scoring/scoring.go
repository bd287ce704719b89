// Package scoring runs the keyword, rule and semantic scorers for a call and joins
// their output into a QAReport.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/keyword"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/rule"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/semantic"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/similarity"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Default engine configuration constants.
const (
	defaultSemanticTimeout = 5 * time.Second
	defaultConcurrency     = 4
)

// ErrNilTaxonomy is returned when an engine is built without a taxonomy.
var ErrNilTaxonomy = errors.New("scoring: taxonomy is nil")

// Request is one call to score. Chunks, when present, follow Transcript in order.
type Request struct {
	CallID     string
	CallType   string
	Transcript string
	Chunks     []string
}

// Text returns the full transcript with chunks concatenated.
func (r Request) Text() string {
	return transcript.Join(append([]string{r.Transcript}, r.Chunks...))
}

// Result pairs a batch request with its report.
type Result struct {
	CallID string
	Report report.QAReport
	Err    error
}

// Scorer computes a QAReport, honouring ctx for cancellation.
type Scorer interface {
	Score(ctx context.Context, req Request) (report.QAReport, error)
}

// Engine is the scoring pipeline. It holds only immutable configuration, so one Engine
// can score any number of calls concurrently.
type Engine struct {
	tax             *taxonomy.Taxonomy
	th              taxonomy.Thresholds
	semantic        *semantic.Scorer
	semanticTimeout time.Duration
	concurrency     int
	log             logger.Logger
}

var _ Scorer = (*Engine)(nil)

// NewEngine validates the thresholds and builds an Engine. capability may be nil, in
// which case every semantic category degrades to its rule-based score.
func NewEngine(tax *taxonomy.Taxonomy, th taxonomy.Thresholds, capability similarity.Capability, opts ...Option) (*Engine, error) {
	if tax == nil {
		return nil, ErrNilTaxonomy
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	e := &Engine{
		tax:             tax,
		th:              th,
		semanticTimeout: defaultSemanticTimeout,
		concurrency:     defaultConcurrency,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.semantic = semantic.New(capability, semantic.WithLogger(e.log))
	return e, nil
}

// Taxonomy returns the taxonomy the engine scores against.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.tax }

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() taxonomy.Thresholds { return e.th }

// Score scores one call. Keyword detection, rule scoring and semantic scoring run
// concurrently; semantic scoring is bounded by the semantic timeout and degrades on
// expiry. If ctx is cancelled, ctx.Err() is returned and no report is produced.
func (e *Engine) Score(ctx context.Context, req Request) (report.QAReport, error) {
	if err := ctx.Err(); err != nil {
		return report.QAReport{}, err
	}
	start := time.Now()

	tr := transcript.New(req.Text())
	cats := e.tax.ForCallType(req.CallType)

	var (
		hits      []keyword.Hit
		ruleSet   []report.CategoryScore
		semantics []report.CategoryScore
		g         errgroup.Group
	)
	g.Go(func() error {
		hits = keyword.Detect(tr, e.tax, e.th)
		return nil
	})
	g.Go(func() error {
		ruleSet = rule.Score(tr, cats, e.th)
		return nil
	})
	g.Go(func() error {
		sctx := ctx
		if e.semanticTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, e.semanticTimeout)
			defer cancel()
		}
		semantics = e.semantic.Score(sctx, tr, cats, e.th)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report.QAReport{}, err
	}

	r := report.Aggregate(report.Input{
		CallID:         req.CallID,
		CallType:       req.CallType,
		Thresholds:     e.th,
		KeywordHits:    hits,
		RuleScores:     ruleSet,
		SemanticScores: semantics,
	})
	e.log.Debug(ctx, "call scored",
		logger.CallID(req.CallID),
		logger.Float64("overall_rule", r.OverallRuleScore),
		logger.Float64("overall_semantic", r.OverallSemanticScore),
		logger.Int("keyword_hits", len(r.KeywordHits)),
		logger.Bool("degraded", r.Degraded),
		logger.Duration("took", time.Since(start)))
	return r, nil
}

// ScoreBatch scores many calls, at most the configured concurrency at a time. Results
// come back over a channel and are re-ordered to match reqs. If ctx is cancelled no
// partial results are returned.
func (e *Engine) ScoreBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	type indexed struct {
		i int
		r Result
	}
	results := make(chan indexed, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep, err := e.Score(ctx, req)
			results <- indexed{i: i, r: Result{CallID: req.CallID, Report: rep, Err: err}}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Result, len(reqs))
	for it := range results {
		out[it.i] = it.r
	}
	return out, nil
}
