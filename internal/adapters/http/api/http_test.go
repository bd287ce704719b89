package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/http/api"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/mq/queue"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

// mockDeps implements api.Dependencies and api.StatsProvider.
type mockDeps struct {
	mu         sync.Mutex
	seen       map[string]bool
	enqueued   []model.Call
	enqueueErr error
	records    map[string]model.Record
	lastLimit  int
	lastFilter types.AgentFilter
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: map[string]bool{}, records: map[string]model.Record{}}
}

func (m *mockDeps) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeps) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

func (m *mockDeps) Enqueue(_ context.Context, c model.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, c)
	return nil
}

func (m *mockDeps) Score(ctx context.Context, c model.Call) (report.QAReport, error) {
	if err := ctx.Err(); err != nil {
		return report.QAReport{}, err
	}
	return report.Aggregate(report.Input{
		CallID:     c.CallID,
		CallType:   c.CallType,
		Thresholds: taxonomy.DefaultThresholds(),
		RuleScores: []report.CategoryScore{{Category: "A", Method: report.MethodRule, Score: 80, Confidence: 1}},
		SemanticScores: []report.CategoryScore{
			{Category: "A", Method: report.MethodSemantic, Score: 90, Confidence: 0.9},
		},
	}), nil
}

func (m *mockDeps) Report(_ context.Context, callID string) (model.Record, error) {
	rec, ok := m.records[callID]
	if !ok {
		return model.Record{}, repository.ErrNotFound
	}
	return rec, nil
}

func (m *mockDeps) Review(_ context.Context, limit int) ([]types.ReviewEntry, error) {
	m.lastLimit = limit
	return []types.ReviewEntry{{Rank: 1, CallID: "weak", RuleBand: report.BandNeedsImprovement}}, nil
}

func (m *mockDeps) AgentSummary(_ context.Context, filter types.AgentFilter) ([]types.AgentSummary, error) {
	m.lastFilter = filter
	if filter.Agent == "nobody" {
		return nil, nil
	}
	return []types.AgentSummary{{Agent: "amy", Year: 2026, Month: 4, Calls: 2, AvgRuleScore: 30, RuleBand: report.BandFor(30)}}, nil
}

func (m *mockDeps) Taxonomy() taxonomy.Document { return taxonomy.DefaultDocument() }

func (m *mockDeps) Thresholds() taxonomy.Thresholds { return taxonomy.DefaultThresholds() }

func (m *mockDeps) GetStats(context.Context) types.Stats {
	return types.Stats{QueueCapacity: 10, Workers: 2, Provider: "lexical", BreakerState: "disabled"}
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, 50).Register(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestPostCall(t *testing.T) {
	Convey("Given the calls endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a new call is posted", func() {
			w := do(mux, http.MethodPost, "/calls", `{"call_id":"c-1","agent":"a7","transcript":"hello"}`)

			Convey("Then it is accepted and queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "accepted")
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].Agent, ShouldEqual, "a7")
			})

			Convey("Then posting it again reports a duplicate", func() {
				again := do(mux, http.MethodPost, "/calls", `{"call_id":"c-1","transcript":"hello"}`)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(decode(again)["duplicate"], ShouldEqual, true)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the call has no ID", func() {
			w := do(mux, http.MethodPost, "/calls", `{"chunks":["part one","part two"]}`)

			Convey("Then one is generated and returned", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				id, _ := decode(w)["call_id"].(string)
				So(len(id), ShouldEqual, 36)
				So(deps.enqueued[0].CallID, ShouldEqual, id)
				So(deps.enqueued[0].Chunks, ShouldResemble, []string{"part one", "part two"})
			})
		})

		Convey("When the body is malformed", func() {
			So(do(mux, http.MethodPost, "/calls", `{"call_id":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/calls", `{"call_id":"has space"}`).Code, ShouldEqual, http.StatusBadRequest)
			long := `{"call_id":"` + strings.Repeat("x", 129) + `"}`
			w := do(mux, http.MethodPost, "/calls", long)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "call_id")
		})

		Convey("When the queue refuses the call", func() {
			deps.enqueueErr = queue.ErrFull
			w := do(mux, http.MethodPost, "/calls", `{"call_id":"c-2"}`)

			Convey("Then the client sees backpressure and may retry", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "backpressure")
				So(deps.Size(), ShouldEqual, 0)
			})

			Convey("Then the refusal is counted by error kind", func() {
				scrape := do(mux, http.MethodGet, "/healthz", "").Body.String()
				So(scrape, ShouldContainSubstring, `component="http_calls",error_type="backpressure"`)
			})
		})

		Convey("When the method is wrong", func() {
			So(do(mux, http.MethodGet, "/calls", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the synchronous scoring endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a call is scored", func() {
			w := do(mux, http.MethodPost, "/score", `{"call_id":"s-1","transcript":"hello"}`)

			Convey("Then the report is returned and nothing is queued", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var r report.QAReport
				So(json.Unmarshal(w.Body.Bytes(), &r), ShouldBeNil)
				So(r.CallID, ShouldEqual, "s-1")
				So(r.RuleBand, ShouldEqual, report.BandExcellent)
				So(deps.enqueued, ShouldBeEmpty)
			})
		})

		Convey("When the body is invalid", func() {
			So(do(mux, http.MethodPost, "/score", `[]`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given stored reports", t, func() {
		deps := newMockDeps()
		rep, _ := deps.Score(context.Background(), model.Call{CallID: "r-1"})
		deps.records["r-1"] = model.NewRecord(model.Call{CallID: "r-1", Agent: "a1"}, rep, time.Unix(0, 0))
		mux := newMux(deps)

		Convey("When a stored report is requested", func() {
			w := do(mux, http.MethodGet, "/reports/r-1", "")

			Convey("Then it is returned with its metadata", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rec model.Record
				So(json.Unmarshal(w.Body.Bytes(), &rec), ShouldBeNil)
				So(rec.Agent, ShouldEqual, "a1")
				So(rec.Report.OverallRuleScore, ShouldEqual, 80)
			})
		})

		Convey("When an unknown report is requested", func() {
			w := do(mux, http.MethodGet, "/reports/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the review list is requested", func() {
			w := do(mux, http.MethodGet, "/review?limit=5", "")

			Convey("Then the limit is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
				So(w.Body.String(), ShouldContainSubstring, `"rule_band":"NeedsImprovement"`)
			})
		})

		Convey("When the review limit is out of range", func() {
			So(do(mux, http.MethodGet, "/review?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/review?limit=51", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/review?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When agent summaries are requested", func() {
			w := do(mux, http.MethodGet, "/agents?agent=%20amy%20&year=2026", "")

			Convey("Then the trimmed filters are passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter, ShouldResemble, types.AgentFilter{Agent: "amy", Year: 2026})
				var rows []types.AgentSummary
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Month, ShouldEqual, 4)
				So(rows[0].RuleBand, ShouldEqual, report.BandFor(30))
			})
		})

		Convey("When no agent matches", func() {
			w := do(mux, http.MethodGet, "/agents?agent=nobody", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When the year is not usable", func() {
			So(do(mux, http.MethodGet, "/agents?year=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/agents?year=20260", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/agents?year=last", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "year")
			So(do(mux, http.MethodPost, "/agents", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the taxonomy is requested", func() {
			w := do(mux, http.MethodGet, "/taxonomy", "")
			body := decode(w)

			Convey("Then categories and thresholds are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["categories"], ShouldHaveLength, 4)
				th, _ := body["thresholds"].(map[string]any)
				So(th["fuzzy_threshold"], ShouldEqual, 85.0)
			})
		})

		Convey("When stats are requested", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["similarity_provider"], ShouldEqual, "lexical")
		})

		Convey("When metrics are scraped", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "callqa_scoring_system_goroutine_count")
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given an op-tagged error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.test", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: boom")
		})

		Convey("Then a bare kind carries no cause", func() {
			So(api.NewKind("op", api.ErrBackpressure).Error(), ShouldEqual, "op: backpressure")
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
