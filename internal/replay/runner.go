package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// ErrTimeout is returned when some accepted calls were not scored within Config.Wait.
var ErrTimeout = errors.New("timed out waiting for reports")

// Run replays calls against the service and returns what happened to each. A partial
// Summary is returned alongside ErrTimeout.
func Run(ctx context.Context, cfg *Config, calls []model.Call) (Summary, error) {
	c := cfg.withDefaults()
	log := c.Logger
	start := time.Now()
	client := newHTTPClient(c.BaseURL, c.Timeout)

	log.Info(ctx, "starting replay",
		logger.String("baseURL", c.BaseURL),
		logger.Int("calls", len(calls)),
		logger.Int("workers", c.Workers))

	if err := client.checkHealth(ctx); err != nil {
		return Summary{}, fmt.Errorf("service health check failed: %w", err)
	}

	sum := Summary{Results: client.submit(ctx, c.Workers, calls, log)}
	sum.Submitted = len(sum.Results)
	for _, r := range sum.Results {
		switch r.Outcome {
		case OutcomeAccepted:
			sum.Accepted++
		case OutcomeDuplicate:
			sum.Duplicate++
		default:
			sum.Failed++
		}
	}
	log.Info(ctx, "calls submitted",
		logger.Int("accepted", sum.Accepted),
		logger.Int("duplicate", sum.Duplicate),
		logger.Int("failed", sum.Failed))

	waitErr := waitForReports(ctx, client, &c, sum.Results)
	for _, r := range sum.Results {
		if r.Record != nil {
			sum.Scored++
		}
	}

	review, err := client.review(ctx, c.ReviewLimit)
	if err != nil {
		log.Warn(ctx, "failed to fetch review list", logger.Error(err))
	}
	sum.Review = review
	sum.Duration = time.Since(start)

	log.Info(ctx, "replay finished",
		logger.Int("scored", sum.Scored),
		logger.Int("review", len(sum.Review)),
		logger.Duration("duration", sum.Duration))
	return sum, waitErr
}

// waitForReports polls until every submitted call has a stored report or the wait
// expires. Duplicates are fetched too; they may have been scored by an earlier run.
func waitForReports(ctx context.Context, client *httpClient, cfg *Config, results []Result) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		pending := 0
		for i := range results {
			r := &results[i]
			if r.Outcome == OutcomeFailed || r.Record != nil || r.Err != nil {
				continue
			}
			rec, err := client.report(ctx, r.CallID)
			switch {
			case err == nil:
				r.Record = rec
			case errors.Is(err, errNotScored):
				pending++
			default:
				if ctx.Err() != nil {
					pending++
					continue
				}
				r.Err = err
			}
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d calls pending", ErrTimeout, pending)
		case <-ticker.C:
		}
	}
}
