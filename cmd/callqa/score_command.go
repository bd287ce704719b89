package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/transcriptfile"
	service "github.com/massimocristi1970/CallAnalysisApp/internal/app"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/scoring"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// scoredCall is one line of `callqa score` JSON output.
type scoredCall struct {
	CallID string           `json:"call_id"`
	Error  string           `json:"error,omitempty"`
	Report *report.QAReport `json:"report,omitempty"`
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var format string
	var storePath string
	var callType string
	var agent string
	var categories bool

	cmd := &cobra.Command{
		Use:   "score FILE_OR_DIR...",
		Short: "Score transcript files",
		Long: "Score transcript files without a running service.\n\n" +
			"Each .txt file is one call named after the file. Files named NAME.partN.txt are\n" +
			"joined in N order into the call NAME. Directories are expanded to their .txt files.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := useTable(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			log := ctx.logger(cmd.ErrOrStderr())

			calls, err := transcriptfile.Load(args)
			if err != nil {
				return err
			}
			for i := range calls {
				if calls[i].CallType == "" {
					calls[i].CallType = callType
				}
				if calls[i].Agent == "" {
					calls[i].Agent = agent
				}
			}

			svc, err := service.New(cfg, service.WithLogger(log))
			if err != nil {
				return err
			}
			results, err := svc.ScoreBatch(cmd.Context(), calls)
			if err != nil {
				return err
			}

			if storePath != "" {
				if err := saveResults(cmd.Context(), storePath, calls, results, log); err != nil {
					return err
				}
			}

			if table {
				fmt.Fprintln(cmd.OutOrStdout(), renderScoreTable(results))
				if categories {
					for _, r := range results {
						if r.Err == nil {
							fmt.Fprintln(cmd.OutOrStdout(), renderCategoryTable(&r.Report))
						}
					}
				}
			} else if err := writeJSON(cmd, scoredCalls(results)); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d calls failed to score", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Output format: auto, json or table")
	cmd.Flags().StringVar(&storePath, "store", "", "Also save the reports to this SQLite database")
	cmd.Flags().StringVar(&callType, "call-type", "", "Call type for calls that do not name one")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent for calls that do not name one")
	cmd.Flags().BoolVar(&categories, "categories", false, "Add a per-category table for each call (table format)")
	return cmd
}

// saveResults writes each successfully scored call to a SQLite report store.
func saveResults(ctx context.Context, path string, calls []model.Call, results []scoring.Result, log logger.Logger) error {
	store, err := repository.OpenSQLite(ctx, path, repository.WithLogger(log.Named("store")))
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	for i := range results {
		if results[i].Err != nil {
			continue
		}
		if err := store.Save(ctx, model.NewRecord(calls[i], results[i].Report, now)); err != nil {
			return fmt.Errorf("save %s: %w", calls[i].CallID, err)
		}
	}
	log.Info(ctx, "reports saved", logger.String("path", path), logger.Int("calls", len(results)))
	return nil
}

func scoredCalls(results []scoring.Result) []scoredCall {
	out := make([]scoredCall, len(results))
	for i := range results {
		out[i].CallID = results[i].CallID
		if results[i].Err != nil {
			out[i].Error = results[i].Err.Error()
			continue
		}
		out[i].Report = &results[i].Report
	}
	return out
}

func renderScoreTable(results []scoring.Result) string {
	headers := []string{"Call", "Rule", "Rule Band", "Semantic", "Semantic Band", "Keywords", "Degraded"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, []string{r.CallID, "-", "error: " + r.Err.Error()})
			continue
		}
		rep := r.Report
		rows = append(rows, []string{
			r.CallID,
			formatScore(rep.OverallRuleScore),
			rep.RuleBand.String(),
			formatScore(rep.OverallSemanticScore),
			rep.SemanticBand.String(),
			fmt.Sprintf("%d", len(rep.KeywordHits)),
			yesNo(rep.Degraded),
		})
	}
	return renderTable(headers, rows, aligns)
}

func renderCategoryTable(rep *report.QAReport) string {
	semantic := make(map[string]report.CategoryScore, len(rep.SemanticScores))
	for _, s := range rep.SemanticScores {
		semantic[s.Category] = s
	}
	headers := []string{rep.CallID, "Rule", "Semantic", "Matched"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(rep.RuleScores))
	for _, s := range rep.RuleScores {
		sem := semantic[s.Category]
		rows = append(rows, []string{
			s.Category,
			formatScore(s.Score),
			formatScore(sem.Score),
			strings.Join(s.MatchedPhrases, ", "),
		})
	}
	return renderTable(headers, rows, aligns)
}
