package types_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	types "github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

func TestReviewEntryJSON(t *testing.T) {
	Convey("Given a review entry", t, func() {
		entry := types.ReviewEntry{
			Rank:             1,
			CallID:           "call-7",
			OverallRuleScore: 22.5,
			RuleBand:         report.BandFor(22.5),
			ScoredAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}

		Convey("When it is encoded", func() {
			b, err := json.Marshal(entry)

			Convey("Then the band is written by name and empty metadata is omitted", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"rule_band":"NeedsImprovement"`)
				So(string(b), ShouldContainSubstring, `"call_id":"call-7"`)
				So(string(b), ShouldNotContainSubstring, `"agent"`)
			})
		})
	})
}
