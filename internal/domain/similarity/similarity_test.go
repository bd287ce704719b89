package similarity

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	batches int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func (f *fakeEmbedder) ModelID() string { return "fake" }

func TestClampAndCosine(t *testing.T) {
	Convey("Given raw similarity values", t, func() {
		v, err := Clamp(1.2)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 1)
		v, _ = Clamp(-0.3)
		So(v, ShouldEqual, 0)
		v, _ = Clamp(0.42)
		So(v, ShouldEqual, 0.42)
		_, err = Clamp(math.NaN())
		So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
	})

	Convey("Given vectors", t, func() {
		So(Cosine([]float32{1, 0}, []float32{1, 0}), ShouldAlmostEqual, 1)
		So(Cosine([]float32{1, 0}, []float32{0, 1}), ShouldAlmostEqual, 0)
		So(Cosine([]float32{1, 0}, []float32{-1, 0}), ShouldAlmostEqual, -1)
		So(Cosine([]float32{1}, []float32{1, 2}), ShouldEqual, 0)
		So(Cosine([]float32{0, 0}, []float32{1, 2}), ShouldEqual, 0)
	})
}

func TestEmbedding(t *testing.T) {
	Convey("Given an embedding capability", t, func() {
		emb := &fakeEmbedder{vectors: map[string][]float32{
			"a":        {1, 0},
			"b":        {0.6, 0.8},
			"opposite": {-1, 0},
		}}
		c := NewEmbedding(emb)
		ctx := context.Background()

		Convey("When texts are prepared in a batch", func() {
			So(c.Prepare(ctx, []string{"a", "b", "a"}), ShouldBeNil)
			v, err := c.Similarity(ctx, "a", "b")

			Convey("Then pairwise calls reuse the memo", func() {
				So(err, ShouldBeNil)
				So(v, ShouldAlmostEqual, 0.6, 1e-6)
				So(emb.batches, ShouldEqual, 1)
				So(emb.calls, ShouldEqual, 0)
				So(c.Prepare(ctx, []string{"a", "b"}), ShouldBeNil)
				So(emb.batches, ShouldEqual, 1)
			})
		})

		Convey("When vectors point apart", func() {
			v, err := c.Similarity(ctx, "a", "opposite")

			Convey("Then the score clamps to zero", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0)
			})
		})

		Convey("When the embedder fails", func() {
			emb.err = errors.New("connection refused")
			_, err := c.Similarity(ctx, "x", "y")
			perr := c.Prepare(ctx, []string{"z"})

			Convey("Then ErrUnavailable is returned", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				So(errors.Is(perr, ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Similarity(cctx, "a", "b")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When the memo is bounded", func() {
			small := NewEmbedding(emb, WithCacheSize(1))
			_, _ = small.Similarity(ctx, "a", "b")
			So(len(small.cache), ShouldEqual, 1)
		})
	})
}

func TestLexical(t *testing.T) {
	Convey("Given the lexical capability", t, func() {
		ctx := context.Background()
		l := Lexical{}

		Convey("Then identical texts score 1", func() {
			v, err := l.Similarity(ctx, "payment plan", "Payment plan!")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1)
		})

		Convey("Then partial overlap scores between 0 and 1", func() {
			v, _ := l.Similarity(ctx, "set up a repayment plan", "we can look at a plan")
			So(v, ShouldBeBetween, 0, 1)
		})

		Convey("Then disjoint or empty texts score 0", func() {
			v, _ := l.Similarity(ctx, "walk you through slowly", "patient instruction")
			So(v, ShouldEqual, 0)
			v, _ = l.Similarity(ctx, "", "anything")
			So(v, ShouldEqual, 0)
		})
	})
}

func TestBreaker(t *testing.T) {
	Convey("Given a breaker around a failing capability", t, func() {
		fail := true
		calls := 0
		inner := Func(func(ctx context.Context, a, b string) (float64, error) {
			calls++
			if fail {
				return 0, errors.New("backend down")
			}
			return 0.5, nil
		})
		var states []State
		br := NewBreaker(inner, BreakerConfig{
			Name: "test", MaxFailures: 2, ResetTimeout: time.Minute, HalfOpenMax: 1,
			OnStateChange: func(s State) { states = append(states, s) },
		})
		now := time.Unix(1000, 0)
		br.now = func() time.Time { return now }
		ctx := context.Background()

		Convey("When failures reach the limit", func() {
			_, _ = br.Similarity(ctx, "a", "b")
			_, _ = br.Similarity(ctx, "a", "b")
			_, err := br.Similarity(ctx, "a", "b")

			Convey("Then the breaker opens and fails fast", func() {
				So(br.State(), ShouldEqual, StateOpen)
				So(errors.Is(err, ErrCircuitOpen), ShouldBeTrue)
				So(calls, ShouldEqual, 2)
			})

			Convey("And after the reset timeout a successful probe closes it", func() {
				now = now.Add(2 * time.Minute)
				fail = false
				v, err := br.Similarity(ctx, "a", "b")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0.5)
				So(br.State(), ShouldEqual, StateClosed)
				So(states, ShouldResemble, []State{StateOpen, StateHalfOpen, StateClosed})
			})

			Convey("And a failed probe re-opens it", func() {
				now = now.Add(2 * time.Minute)
				_, _ = br.Similarity(ctx, "a", "b")
				So(br.State(), ShouldEqual, StateOpen)
			})
		})

		Convey("When the caller cancels", func() {
			cancelled := NewBreaker(Func(func(ctx context.Context, a, b string) (float64, error) {
				return 0, context.Canceled
			}), BreakerConfig{MaxFailures: 1})
			_, _ = cancelled.Similarity(ctx, "a", "b")

			Convey("Then the breaker stays closed", func() {
				So(cancelled.State(), ShouldEqual, StateClosed)
			})
		})

		Convey("When wrapping a preparer", func() {
			emb := &fakeEmbedder{vectors: map[string][]float32{"a": {1}}}
			wrapped := NewBreaker(NewEmbedding(emb), BreakerConfig{})
			So(wrapped.Prepare(ctx, []string{"a"}), ShouldBeNil)
			So(emb.batches, ShouldEqual, 1)
			So(br.Prepare(ctx, []string{"a"}), ShouldBeNil)
		})
	})

	Convey("Given state names", t, func() {
		So(StateClosed.String(), ShouldEqual, "closed")
		So(StateOpen.String(), ShouldEqual, "open")
		So(StateHalfOpen.String(), ShouldEqual, "half-open")
		So(State(7).String(), ShouldEqual, "unknown")
	})
}
