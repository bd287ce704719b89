// Package worker drains the call queue, scores each call and stores the report.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/scoring"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue is where workers receive calls from.
type Queue interface {
	Dequeue() <-chan model.Call
	Close() error
}

// Store persists scored calls.
type Store interface {
	Save(ctx context.Context, rec model.Record) error
}

// taker is implemented by queues that track deliveries.
type taker interface{ Taken() }

// InMemoryWorker scores calls received from a Queue.
type InMemoryWorker struct {
	queue  Queue
	scorer scoring.Scorer
	store  Store
	name   string
	now    func() time.Time

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  q,
		scorer: scorer,
		store:  store,
		name:   "worker",
		now:    time.Now,
		done:   make(chan struct{}),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes calls until the queue is drained after Close or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	calls := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-calls:
			if !ok {
				return
			}
			if t, ok := w.queue.(taker); ok {
				t.Taken()
			}
			if err := w.process(ctx, c); err != nil {
				w.logger.Error(ctx, "call processing failed", logger.CallID(c.CallID), logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, c model.Call) error { //nolint:gocritic // hugeParam: Call arrives by value from the channel
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	r, err := w.scorer.Score(ctx, c.Request())
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return fmt.Errorf("score call %s: %w", c.CallID, err)
	}
	Observe(r)

	saveStart := time.Now()
	err = w.store.Save(ctx, model.NewRecord(c, r, w.now()))
	metrics.RecordStoreWriteLatency(float64(time.Since(saveStart).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("store call %s: %w", c.CallID, err)
	}

	w.logger.Debug(ctx, "call processed",
		logger.CallID(c.CallID),
		logger.Float64("overall_rule", r.OverallRuleScore),
		logger.Bool("degraded", r.Degraded))
	return nil
}

// Observe records the per-report scoring metrics.
func Observe(r report.QAReport) {
	metrics.RecordCallScored(r.RuleBand.String())
	metrics.RecordOverallScore(report.MethodRule.String(), r.OverallRuleScore)
	metrics.RecordOverallScore(report.MethodSemantic.String(), r.OverallSemanticScore)
	for _, h := range r.KeywordHits {
		metrics.RecordKeywordHit(string(h.Tier), string(h.MatchType))
	}
	for _, s := range r.SemanticScores {
		if s.Degraded {
			metrics.RecordSemanticDegraded(s.Category)
		}
	}
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing log. workerCount < 1 means one per CPU.
func NewPool(workerCount int, q Queue, scorer scoring.Scorer, store Store, log logger.Logger, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  log.Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithLogger(log)}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, scorer, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it, bounded by ctx and
// a fixed upper limit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
