package report

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/fuzzy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/keyword"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
)

func TestBandFor(t *testing.T) {
	Convey("Given scores at and around the band edges", t, func() {
		So(BandFor(100), ShouldEqual, BandExcellent)
		So(BandFor(80), ShouldEqual, BandExcellent)
		So(BandFor(79.99), ShouldEqual, BandGood)
		So(BandFor(60), ShouldEqual, BandGood)
		So(BandFor(59.99), ShouldEqual, BandAverage)
		So(BandFor(40), ShouldEqual, BandAverage)
		So(BandFor(39.99), ShouldEqual, BandNeedsImprovement)
		So(BandFor(0), ShouldEqual, BandNeedsImprovement)
	})
}

func TestEnumsText(t *testing.T) {
	Convey("Given the closed enums", t, func() {
		Convey("Then they marshal as text and back", func() {
			b, err := json.Marshal(struct {
				M Method
				B Band
			}{MethodSemantic, BandNeedsImprovement})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"M":"semantic","B":"NeedsImprovement"}`)

			var m Method
			So(m.UnmarshalText([]byte("rule_based")), ShouldEqual, nil)
			So(m, ShouldEqual, MethodRule)
			var band Band
			So(band.UnmarshalText([]byte("Good")), ShouldBeNil)
			So(band, ShouldEqual, BandGood)
		})

		Convey("Then unknown values are rejected", func() {
			_, err := Method(0).MarshalText()
			So(err, ShouldNotBeNil)
			_, err = Band(9).MarshalText()
			So(err, ShouldNotBeNil)
			var m Method
			So(m.UnmarshalText([]byte("magic")), ShouldNotBeNil)
			var band Band
			So(band.UnmarshalText([]byte("Great")), ShouldNotBeNil)
		})
	})
}

func sampleInput() Input {
	return Input{
		CallID:     "call-1",
		Thresholds: taxonomy.DefaultThresholds(),
		KeywordHits: []keyword.Hit{
			{Phrase: "stress", Tier: taxonomy.TierMedium, Confidence: 1, MatchType: fuzzy.Exact},
		},
		RuleScores: []CategoryScore{
			{Category: "A", Method: MethodRule, Score: 100, Confidence: 1, MatchedPhrases: []string{"x"}, Explanation: `matched 1 of 1 phrases: "x"`},
			{Category: "B", Method: MethodRule, Score: 33.333333, Confidence: 0.9, MatchedPhrases: []string{"y"}},
			{Category: "C", Method: MethodRule, MatchedPhrases: []string{}},
		},
		SemanticScores: []CategoryScore{
			{Category: "A", Method: MethodSemantic, Score: 75, Confidence: 0.75, MatchedPhrases: []string{"c", "s"}},
			{Category: "B", Method: MethodSemantic, Degraded: true, MatchedPhrases: []string{}},
			{Category: "C", Method: MethodSemantic, Confidence: 0.65, MatchedPhrases: []string{}},
		},
	}
}

func TestAggregate(t *testing.T) {
	Convey("Given rule and semantic scores with one degraded category", t, func() {
		in := sampleInput()
		r := Aggregate(in)

		Convey("Then overall scores are rounded means", func() {
			So(r.OverallRuleScore, ShouldEqual, 44.44)
			So(r.RuleBand, ShouldEqual, BandAverage)
			So(r.OverallSemanticScore, ShouldEqual, 36.11)
			So(r.SemanticBand, ShouldEqual, BandNeedsImprovement)
		})

		Convey("Then the degraded category carries the rule-based score", func() {
			b := r.SemanticScores[1]
			So(r.Degraded, ShouldBeTrue)
			So(b.Degraded, ShouldBeTrue)
			So(b.Method, ShouldEqual, MethodSemantic)
			So(b.Score, ShouldEqual, in.RuleScores[1].Score)
			So(b.Confidence, ShouldEqual, 0.9)
			So(b.MatchedPhrases, ShouldResemble, []string{"y"})
			So(b.Explanation, ShouldStartWith, DegradedPrefix)
		})

		Convey("Then mutating the input does not change the report", func() {
			in.RuleScores[0].MatchedPhrases[0] = "mutated"
			in.KeywordHits[0].Phrase = "mutated"
			So(r.RuleScores[0].MatchedPhrases[0], ShouldEqual, "x")
			So(r.KeywordHits[0].Phrase, ShouldEqual, "stress")
		})

		Convey("Then aggregating again is idempotent", func() {
			So(Aggregate(sampleInput()), ShouldResemble, Aggregate(sampleInput()))
		})

		Convey("Then a clone is independent", func() {
			c := r.Clone()
			c.SemanticScores[0].MatchedPhrases[0] = "z"
			So(r.SemanticScores[0].MatchedPhrases[0], ShouldEqual, "c")
		})
	})

	Convey("Given no categories", t, func() {
		r := Aggregate(Input{})

		Convey("Then overall scores are zero", func() {
			So(r.OverallRuleScore, ShouldEqual, 0)
			So(r.OverallSemanticScore, ShouldEqual, 0)
			So(r.RuleBand, ShouldEqual, BandNeedsImprovement)
			So(r.KeywordHits, ShouldNotBeNil)
			So(r.Degraded, ShouldBeFalse)
		})
	})
}
