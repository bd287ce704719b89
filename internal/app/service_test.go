package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	service "github.com/massimocristi1970/CallAnalysisApp/internal/app"
	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.QueueSize = 4
	cfg.DedupeSize = 100
	cfg.MaxReviewLimit = 2
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		svc, err := service.New(nil)

		Convey("Then it builds with the built-in taxonomy and lexical similarity", func() {
			So(err, ShouldBeNil)
			So(svc, ShouldNotBeNil)
			So(len(svc.Taxonomy().Categories), ShouldEqual, 4)
			So(svc.Thresholds(), ShouldResemble, taxonomy.DefaultThresholds())
			st := svc.GetStats(context.Background())
			So(st.Provider, ShouldEqual, config.ProviderLexical)
			So(st.BreakerState, ShouldEqual, "disabled")
			So(st.Workers, ShouldEqual, 0)
		})
	})

	Convey("Given invalid thresholds", t, func() {
		cfg := testConfig()
		cfg.SemanticThreshold = 2

		_, err := service.New(cfg)
		So(errors.Is(err, taxonomy.ErrInvalidThreshold), ShouldBeTrue)
	})

	Convey("Given the openai provider without a key", t, func() {
		cfg := testConfig()
		cfg.SimilarityProvider = config.ProviderOpenAI

		_, err := service.New(cfg)
		So(err, ShouldNotBeNil)
	})

	Convey("Given an embedding provider", t, func() {
		cfg := testConfig()
		cfg.SimilarityProvider = config.ProviderOllama
		cfg.SimilarityBaseURL = "http://127.0.0.1:1"

		svc, err := service.New(cfg)

		Convey("Then it is guarded by a closed breaker", func() {
			So(err, ShouldBeNil)
			So(svc.GetStats(context.Background()).BreakerState, ShouldEqual, "closed")
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When used before Start", func() {
			err := svc.Enqueue(ctx, model.Call{CallID: "c1"})
			_, rerr := svc.Review(ctx, 1)

			Convey("Then asynchronous operations are refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(rerr, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started twice and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx).Workers, ShouldEqual, 2)

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it cannot be restarted", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
			})
		})
	})
}

func TestService_Dedupe(t *testing.T) {
	Convey("Given a service", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Then a call ID is only new once", func() {
			So(svc.SeenAndRecord(ctx, "c1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "c1"), ShouldBeTrue)
			So(svc.Size(), ShouldEqual, 1)

			svc.Unrecord(ctx, "c1")
			So(svc.SeenAndRecord(ctx, "c1"), ShouldBeFalse)
		})
	})
}

func TestService_Score(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When scoring a call synchronously", func() {
			r, err := svc.Score(ctx, model.Call{
				CallID:     "sync-1",
				Transcript: "Let me explain. Take your time, there is no obligation.",
			})

			Convey("Then a report is produced", func() {
				So(err, ShouldBeNil)
				So(r.CallID, ShouldEqual, "sync-1")
				So(len(r.RuleScores), ShouldEqual, 4)
				So(r.OverallRuleScore, ShouldBeGreaterThan, 0)
				So(r.RuleBand, ShouldNotEqual, report.Band(0))
			})
		})

		Convey("When the call is invalid", func() {
			_, err := svc.Score(ctx, model.Call{Transcript: "hello"})
			So(errors.Is(err, model.ErrMissingCallID), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.Score(cctx, model.Call{CallID: "c", Transcript: "hello"})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given similarity disabled", t, func() {
		cfg := testConfig()
		cfg.SimilarityProvider = config.ProviderNone
		svc, err := service.New(cfg)
		So(err, ShouldBeNil)

		r, err := svc.Score(context.Background(), model.Call{CallID: "c", Transcript: "let me explain"})

		Convey("Then semantic scores fall back to rule scores", func() {
			So(err, ShouldBeNil)
			So(r.Degraded, ShouldBeTrue)
			So(r.OverallSemanticScore, ShouldEqual, r.OverallRuleScore)
		})
	})

	Convey("Given an injected capability that times out", t, func() {
		cfg := testConfig()
		cfg.SemanticTimeoutMS = 10
		slow := func(ctx context.Context, a, b string) (float64, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Second):
				return 1, nil
			}
		}
		svc, err := service.New(cfg, service.WithCapability(funcCapability(slow), "slow"))
		So(err, ShouldBeNil)

		r, err := svc.Score(context.Background(), model.Call{CallID: "c", Transcript: "take your time"})

		Convey("Then the report degrades instead of failing", func() {
			So(err, ShouldBeNil)
			So(r.Degraded, ShouldBeTrue)
			So(svc.GetStats(context.Background()).Provider, ShouldEqual, "slow")
		})
	})
}

func TestService_ScoreBatch(t *testing.T) {
	Convey("Given a batch with one invalid call", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		calls := []model.Call{
			{CallID: "b-1", Transcript: "Pay now or else."},
			{CallID: "", Transcript: "no id"},
			{CallID: "b-3", Transcript: "Let me explain. Take your time."},
		}

		results, err := svc.ScoreBatch(context.Background(), calls)

		Convey("Then results keep input order and carry per-call errors", func() {
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 3)
			So(results[0].CallID, ShouldEqual, "b-1")
			So(results[0].Err, ShouldBeNil)
			So(errors.Is(results[1].Err, model.ErrMissingCallID), ShouldBeTrue)
			So(results[2].Report.CallID, ShouldEqual, "b-3")
			So(results[2].Report.OverallRuleScore, ShouldBeGreaterThan, results[0].Report.OverallRuleScore)
		})
	})

	Convey("Given a cancelled context", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = svc.ScoreBatch(ctx, []model.Call{{CallID: "x", Transcript: "hi"}})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestService_AgentSummary(t *testing.T) {
	Convey("Given a started service over a shared store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc, err := service.New(testConfig(), service.WithStore(store))
		So(err, ShouldBeNil)

		_, err = svc.AgentSummary(ctx, types.AgentFilter{})
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		at := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
		for i, transcript := range []string{"Let me explain. Take your time.", "Pay now or else."} {
			call := model.Call{CallID: fmt.Sprintf("ag-%d", i), Agent: "amy", Transcript: transcript}
			r, err := svc.Score(ctx, call)
			So(err, ShouldBeNil)
			So(store.Save(ctx, model.NewRecord(call, r, at)), ShouldBeNil)
		}

		Convey("Then the agent's month is summarised from the store", func() {
			rows, err := svc.AgentSummary(ctx, types.AgentFilter{Agent: "amy", Year: 2026})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Calls, ShouldEqual, 2)
			So(rows[0].Month, ShouldEqual, 5)
			So(rows[0].RuleBand, ShouldEqual, report.BandFor(rows[0].AvgRuleScore))
		})
	})
}

type funcCapability func(ctx context.Context, a, b string) (float64, error)

func (f funcCapability) Similarity(ctx context.Context, a, b string) (float64, error) {
	return f(ctx, a, b)
}
