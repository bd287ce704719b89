package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/transcriptfile"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/internal/replay"
)

// replayOutput is the JSON shape of `callqa replay`.
type replayOutput struct {
	Submitted int                 `json:"submitted"`
	Accepted  int                 `json:"accepted"`
	Duplicate int                 `json:"duplicate"`
	Failed    int                 `json:"failed"`
	Scored    int                 `json:"scored"`
	Duration  string              `json:"duration"`
	Calls     []replayCall        `json:"calls"`
	Review    []types.ReviewEntry `json:"review"`
}

type replayCall struct {
	CallID  string   `json:"call_id"`
	Outcome string   `json:"outcome"`
	Rule    *float64 `json:"overall_rule_score,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func newReplayCommand(ctx *commandContext) *cobra.Command {
	cfg := replay.Config{}
	var format string

	cmd := &cobra.Command{
		Use:   "replay FILE_OR_DIR...",
		Short: "Submit transcript files to a running service and wait for their reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := useTable(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			calls, err := transcriptfile.Load(args)
			if err != nil {
				return err
			}
			cfg.Logger = ctx.logger(cmd.ErrOrStderr())

			sum, runErr := replay.Run(cmd.Context(), &cfg, calls)
			if runErr != nil && !errors.Is(runErr, replay.ErrTimeout) {
				return runErr
			}

			out := toReplayOutput(&sum)
			if table {
				fmt.Fprintln(cmd.OutOrStdout(), renderReplayTable(&out))
				if len(out.Review) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), renderReviewTable(out.Review))
				}
			} else if err := writeJSON(cmd, out); err != nil {
				return err
			}

			if runErr != nil {
				return runErr
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d calls were rejected", sum.Failed, sum.Submitted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", replay.DefaultBaseURL, "Base URL of the scoring service")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", replay.DefaultWorkers, "Concurrent submitters")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", replay.DefaultTimeout, "Per-request timeout")
	cmd.Flags().DurationVar(&cfg.Wait, "wait", replay.DefaultWait, "How long to wait for reports")
	cmd.Flags().DurationVar(&cfg.PollInterval, "poll", replay.DefaultPollInterval, "Delay between report polls")
	cmd.Flags().IntVar(&cfg.ReviewLimit, "review", replay.DefaultReviewLimit, "Review entries to fetch afterwards")
	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Output format: auto, json or table")
	return cmd
}

func toReplayOutput(sum *replay.Summary) replayOutput {
	out := replayOutput{
		Submitted: sum.Submitted,
		Accepted:  sum.Accepted,
		Duplicate: sum.Duplicate,
		Failed:    sum.Failed,
		Scored:    sum.Scored,
		Duration:  sum.Duration.Round(time.Millisecond).String(),
		Calls:     make([]replayCall, len(sum.Results)),
		Review:    sum.Review,
	}
	if out.Review == nil {
		out.Review = []types.ReviewEntry{}
	}
	for i, r := range sum.Results {
		c := replayCall{CallID: r.CallID, Outcome: r.Outcome}
		if r.Record != nil {
			score := r.Record.Report.OverallRuleScore
			c.Rule = &score
		}
		if r.Err != nil {
			c.Error = r.Err.Error()
		}
		out.Calls[i] = c
	}
	return out
}

func renderReplayTable(out *replayOutput) string {
	headers := []string{"Call", "Outcome", "Rule", "Error"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(out.Calls)+1)
	for _, c := range out.Calls {
		score := "-"
		if c.Rule != nil {
			score = formatScore(*c.Rule)
		}
		rows = append(rows, []string{c.CallID, c.Outcome, score, c.Error})
	}
	rows = append(rows, []string{
		"total " + strconv.Itoa(out.Submitted),
		fmt.Sprintf("%d accepted, %d duplicate, %d failed", out.Accepted, out.Duplicate, out.Failed),
		strconv.Itoa(out.Scored) + " scored",
		out.Duration,
	})
	return renderTable(headers, rows, aligns)
}

func renderReviewTable(entries []types.ReviewEntry) string {
	headers := []string{"Rank", "Call", "Rule", "Band", "Semantic", "Degraded"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.CallID,
			formatScore(e.OverallRuleScore),
			e.RuleBand.String(),
			formatScore(e.OverallSemanticScore),
			yesNo(e.Degraded),
		})
	}
	return renderTable(headers, rows, aligns)
}
