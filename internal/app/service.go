// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	callqueue "github.com/massimocristi1970/CallAnalysisApp/internal/adapters/mq/queue"
	workerpool "github.com/massimocristi1970/CallAnalysisApp/internal/adapters/mq/worker"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/dedupe"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/scoring"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/similarity"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// Service implements the API dependencies for the call QA system.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	tax        *taxonomy.Taxonomy
	capability similarity.Capability
	breaker    *similarity.Breaker
	provider   string
	engine     *scoring.Engine
	deduper    dedupe.Deduper
	queue      *callqueue.InMemoryQueue
	pool       *workerpool.Pool
	store      repository.Store
	ownsStore  bool

	// State
	started   bool
	stopped   bool
	startedAt time.Time
	cancel    context.CancelFunc
	now       func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTaxonomy overrides the taxonomy configured in Config.
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(s *Service) {
		if t != nil {
			s.tax = t
		}
	}
}

// WithCapability overrides the configured similarity provider.
func WithCapability(c similarity.Capability, name string) Option {
	return func(s *Service) {
		s.capability = c
		s.provider = name
	}
}

// WithStore uses store instead of opening the configured one. The caller keeps
// ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the time source used for timestamps and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the scoring pipeline from cfg. A nil cfg uses config.New().
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.tax == nil {
		tax, err := cfg.LoadTaxonomy(s.logger.Named("taxonomy"))
		if err != nil {
			return nil, err
		}
		s.tax = tax
	}

	if s.provider == "" {
		c, b, err := buildCapability(cfg, s.logger.Named("similarity"))
		if err != nil {
			return nil, err
		}
		s.capability, s.breaker, s.provider = c, b, cfg.SimilarityProvider
	}

	engine, err := scoring.NewEngine(s.tax, cfg.Thresholds(), metered(s.capability, s.provider),
		scoring.WithSemanticTimeout(cfg.SemanticTimeout()),
		scoring.WithConcurrency(cfg.ScoreConcurrency),
		scoring.WithLogger(s.logger.Named("scoring")),
	)
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}
	s.engine = engine

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.queue = callqueue.NewInMemoryQueue(callqueue.WithCapacity(cfg.QueueSize))
	return s, nil
}

// Start opens the store and starts the worker pool. The pool outlives ctx; it is
// stopped by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.started:
		return nil
	case s.stopped:
		return ErrStopped
	}

	s.logger.Info(ctx, "starting call QA service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store, s.ownsStore = store, true
	}
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateReportsStored(n)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.engine, s.store, s.logger,
		workerpool.WithClock(s.now))
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "call QA service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Cap()),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.String("similarity", s.provider),
		logger.String("store", s.cfg.StoreDriver),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := repository.OpenSQLite(ctx, s.cfg.StorePath,
			repository.WithLogger(s.logger.Named("store")))
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// Stop drains the queue, stops the workers and closes the store it opened.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping call QA service...")

	err := s.pool.Shutdown(ctx)
	s.cancel()
	if s.ownsStore {
		if cerr := s.store.Close(); cerr != nil {
			s.logger.Error(ctx, "error closing report store", logger.Error(cerr))
		}
	}

	s.started, s.stopped = false, true
	s.logger.Info(ctx, "call QA service stopped")
	return err
}

// SeenAndRecord atomically checks if a call ID was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordCallDuplicate()
	}
	return seen
}

// Unrecord removes a call ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered call IDs.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits a call for asynchronous scoring.
func (s *Service) Enqueue(ctx context.Context, c model.Call) error { //nolint:gocritic // hugeParam: Call is queued by value
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = s.now()
	}
	if err := s.queue.Enqueue(ctx, c); err != nil {
		return fmt.Errorf("enqueue call %s: %w", c.CallID, err)
	}
	return nil
}

// Score scores a call synchronously without queueing or storing it.
func (s *Service) Score(ctx context.Context, c model.Call) (report.QAReport, error) { //nolint:gocritic // hugeParam: Call is read-only here
	if err := c.Validate(); err != nil {
		return report.QAReport{}, err
	}
	start := time.Now()
	r, err := s.engine.Score(ctx, c.Request())
	if err != nil {
		metrics.RecordScoringError()
		return report.QAReport{}, err
	}
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	workerpool.Observe(r)
	return r, nil
}

// ScoreBatch scores calls concurrently without queueing or storing them. Results keep
// the order of calls; a call that fails validation carries its error in Result.Err.
func (s *Service) ScoreBatch(ctx context.Context, calls []model.Call) ([]scoring.Result, error) {
	reqs := make([]scoring.Request, 0, len(calls))
	invalid := make(map[int]error)
	for i := range calls {
		if err := calls[i].Validate(); err != nil {
			invalid[i] = err
			continue
		}
		reqs = append(reqs, calls[i].Request())
	}

	start := time.Now()
	scored, err := s.engine.ScoreBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "batch scored",
		logger.Int("calls", len(calls)),
		logger.Int("invalid", len(invalid)),
		logger.Duration("took", time.Since(start)))

	out := make([]scoring.Result, len(calls))
	next := 0
	for i := range calls {
		if verr, ok := invalid[i]; ok {
			out[i] = scoring.Result{CallID: calls[i].CallID, Err: verr}
			continue
		}
		out[i] = scored[next]
		next++
		if out[i].Err != nil {
			metrics.RecordScoringError()
			continue
		}
		workerpool.Observe(out[i].Report)
	}
	return out, nil
}

// Report returns the stored record for a call.
func (s *Service) Report(ctx context.Context, callID string) (model.Record, error) {
	store, err := s.activeStore()
	if err != nil {
		return model.Record{}, err
	}
	return store.Get(ctx, callID)
}

// Review returns the lowest-scoring calls first. limit is capped at the configured
// maximum.
func (s *Service) Review(ctx context.Context, limit int) ([]types.ReviewEntry, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	if limit > s.cfg.MaxReviewLimit {
		limit = s.cfg.MaxReviewLimit
	}
	return store.Review(ctx, limit)
}

// AgentSummary returns per-agent monthly averages of the stored calls.
func (s *Service) AgentSummary(ctx context.Context, filter types.AgentFilter) ([]types.AgentSummary, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return store.AgentSummary(ctx, filter)
}

func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil || !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Taxonomy returns the taxonomy the engine scores against.
func (s *Service) Taxonomy() taxonomy.Document {
	return s.tax.Document()
}

// Thresholds returns the scoring thresholds in effect.
func (s *Service) Thresholds() taxonomy.Thresholds {
	return s.engine.Thresholds()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		QueueLength:   s.queue.Len(),
		QueueCapacity: s.queue.Cap(),
		DedupeSize:    s.deduper.Size(),
		BreakerState:  "disabled",
		Provider:      s.provider,
		Categories:    len(s.tax.Categories()),
	}
	for _, tier := range taxonomy.Tiers {
		st.KeywordPhrases += len(s.tax.Keywords(tier))
	}
	if s.breaker != nil {
		st.BreakerState = s.breaker.State().String()
	}
	if s.started {
		st.Workers = s.pool.Size()
		st.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
		if n, err := s.store.Count(ctx); err == nil {
			st.ReportsStored = int64(n)
			metrics.UpdateReportsStored(n)
		} else {
			s.logger.Warn(ctx, "counting stored reports failed", logger.Error(err))
		}
	}
	return st
}
