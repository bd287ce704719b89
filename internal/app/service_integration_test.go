package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	service "github.com/massimocristi1970/CallAnalysisApp/internal/app"
	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
)

var transcripts = []string{
	"Hello. Let me explain the plan. Take your time, there is no obligation and it is your decision.",
	"Pay now or else.",
	"I understand this is a difficult time. We can set up a payment plan that is affordable for you.",
}

// waitForReport polls until the call has been scored and stored.
func waitForReport(ctx context.Context, svc *service.Service, callID string) (model.Record, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, err := svc.Report(ctx, callID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) || time.Now().After(deadline) {
			return rec, err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with an in-memory store", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When calls are enqueued", func() {
			for i, text := range transcripts {
				So(svc.Enqueue(ctx, model.Call{CallID: fmt.Sprintf("call-%d", i), Agent: "agent-7", Transcript: text}), ShouldBeNil)
			}

			Convey("Then every call is scored and stored", func() {
				for i := range transcripts {
					rec, err := waitForReport(ctx, svc, fmt.Sprintf("call-%d", i))
					So(err, ShouldBeNil)
					So(rec.Agent, ShouldEqual, "agent-7")
					So(rec.Report.CallID, ShouldEqual, rec.CallID)
					So(rec.ScoredAt.IsZero(), ShouldBeFalse)
				}
				So(svc.GetStats(ctx).ReportsStored, ShouldEqual, 3)
			})

			Convey("Then the review list starts with the weakest call and honours the cap", func() {
				for i := range transcripts {
					_, err := waitForReport(ctx, svc, fmt.Sprintf("call-%d", i))
					So(err, ShouldBeNil)
				}
				entries, err := svc.Review(ctx, 50)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].CallID, ShouldEqual, "call-1")
				So(entries[0].OverallRuleScore, ShouldBeLessThanOrEqualTo, entries[1].OverallRuleScore)
			})
		})

		Convey("When a report is requested for an unknown call", func() {
			_, err := svc.Report(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a stopped service", t, func() {
		svc, err := service.New(testConfig())
		So(err, ShouldBeNil)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("Then late calls are refused", func() {
			err := svc.Enqueue(ctx, model.Call{CallID: "late"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a service persisting to SQLite", t, func() {
		cfg := testConfig()
		cfg.StoreDriver = config.StoreSQLite
		cfg.StorePath = filepath.Join(t.TempDir(), "reports", "callqa.db")
		ctx := context.Background()

		svc, err := service.New(cfg)
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Enqueue(ctx, model.Call{CallID: "persisted", Transcript: transcripts[0]}), ShouldBeNil)
		first, err := waitForReport(ctx, svc, "persisted")
		So(err, ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When a new service opens the same database", func() {
			again, err := service.New(cfg)
			So(err, ShouldBeNil)
			So(again.Start(ctx), ShouldBeNil)
			defer func() { _ = again.Stop(ctx) }()

			Convey("Then earlier reports are still available", func() {
				rec, err := again.Report(ctx, "persisted")
				So(err, ShouldBeNil)
				So(rec.Report.OverallRuleScore, ShouldEqual, first.Report.OverallRuleScore)
				So(again.GetStats(ctx).ReportsStored, ShouldEqual, 1)
			})
		})
	})
}
