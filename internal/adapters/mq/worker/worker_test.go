package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/massimocristi1970/CallAnalysisApp/internal/adapters/mq/queue"
	worker "github.com/massimocristi1970/CallAnalysisApp/internal/adapters/mq/worker"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/scoring"
)

type mockScorer struct {
	fail map[string]error
}

func (m *mockScorer) Score(ctx context.Context, req scoring.Request) (report.QAReport, error) {
	if err := m.fail[req.CallID]; err != nil {
		return report.QAReport{}, err
	}
	return report.QAReport{
		CallID:           req.CallID,
		OverallRuleScore: float64(len(req.Text())),
		RuleBand:         report.BandFor(float64(len(req.Text()))),
		SemanticBand:     report.BandNeedsImprovement,
	}, nil
}

type mockStore struct {
	mu      sync.Mutex
	records map[string]model.Record
	err     error
}

func newMockStore() *mockStore { return &mockStore{records: make(map[string]model.Record)} }

func (m *mockStore) Save(ctx context.Context, rec model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[rec.CallID] = rec
	return nil
}

func (m *mockStore) get(id string) (model.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

func (m *mockStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		store := newMockStore()
		scorer := &mockScorer{fail: map[string]error{"bad": errors.New("boom")}}
		at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		w := worker.NewInMemoryWorker(q, scorer, store, worker.WithClock(func() time.Time { return at }))

		convey.Convey("When calls are queued and the queue is closed", func() {
			convey.So(q.Enqueue(context.Background(), model.Call{CallID: "c1", Agent: "amy", Transcript: "hello"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(context.Background(), model.Call{CallID: "bad"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(context.Background(), model.Call{CallID: "c2", Chunks: []string{"a", "b"}}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(context.Background())

			convey.Convey("Then scored calls are stored and failures are skipped", func() {
				rec, ok := store.get("c1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rec.Agent, convey.ShouldEqual, "amy")
				convey.So(rec.ScoredAt, convey.ShouldEqual, at)
				convey.So(rec.Report.OverallRuleScore, convey.ShouldEqual, 5)

				rec, ok = store.get("c2")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rec.Report.OverallRuleScore, convey.ShouldEqual, 3)

				_, ok = store.get("bad")
				convey.So(ok, convey.ShouldBeFalse)
			})

			convey.Convey("Then the worker reports completion", func() {
				var finished bool
				select {
				case <-w.Done():
					finished = true
				default:
				}
				convey.So(finished, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the store fails", func() {
			store.err = errors.New("disk full")
			convey.So(q.Enqueue(context.Background(), model.Call{CallID: "c1"}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(context.Background())

			convey.Convey("Then the worker keeps going and nothing is stored", func() {
				convey.So(store.len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			w.Run(ctx)

			convey.Convey("Then Run returns without waiting for the queue", func() {
				convey.So(q.IsClosed(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		store := newMockStore()
		p := worker.NewPool(4, q, &mockScorer{}, store, nil)
		convey.So(p.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		p.Start(ctx)

		for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			convey.So(q.Enqueue(ctx, model.Call{CallID: id, Transcript: id}), convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			err := p.Shutdown(ctx)

			convey.Convey("Then every queued call was processed first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.len(), convey.ShouldEqual, 8)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool sized from the CPU count", t, func() {
		p := worker.NewPool(0, queue.NewInMemoryQueue(), &mockScorer{}, newMockStore(), nil)
		convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func TestObserve(t *testing.T) {
	convey.Convey("Given a degraded report with keyword hits", t, func() {
		r := report.QAReport{
			RuleBand:       report.BandGood,
			SemanticScores: []report.CategoryScore{{Category: "FairTreatment", Degraded: true}},
		}

		convey.Convey("Then recording its metrics does not panic", func() {
			convey.So(func() { worker.Observe(r) }, convey.ShouldNotPanic)
		})
	})
}
