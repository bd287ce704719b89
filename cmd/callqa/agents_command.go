package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/repository"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
)

func newAgentsCommand(ctx *commandContext) *cobra.Command {
	var format string
	var storePath string
	var filter types.AgentFilter

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Summarise stored calls per agent and month",
		Long: "Summarise the calls saved by `callqa score --store` per agent and UTC month,\n" +
			"newest month first. Calls scored without an agent are left out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := useTable(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if storePath == "" {
				return errors.New("--store is required")
			}
			if filter.Year < 0 || filter.Year > 9999 {
				return fmt.Errorf("--year %d is out of range", filter.Year)
			}
			log := ctx.logger(cmd.ErrOrStderr())

			store, err := repository.OpenSQLite(cmd.Context(), storePath, repository.WithLogger(log.Named("store")))
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.AgentSummary(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if table {
				fmt.Fprintln(cmd.OutOrStdout(), renderAgentTable(rows))
				return nil
			}
			return writeJSON(cmd, rows)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Output format: auto, json or table")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database written by score --store")
	cmd.Flags().StringVar(&filter.Agent, "agent", "", "Only this agent")
	cmd.Flags().IntVar(&filter.Year, "year", 0, "Only this year")
	return cmd
}

func renderAgentTable(rows []types.AgentSummary) string {
	headers := []string{"Agent", "Month", "Calls", "Avg Rule", "Avg Semantic", "Band", "Degraded"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Agent,
			fmt.Sprintf("%04d-%02d", r.Year, r.Month),
			fmt.Sprintf("%d", r.Calls),
			formatScore(r.AvgRuleScore),
			formatScore(r.AvgSemanticScore),
			r.RuleBand.String(),
			fmt.Sprintf("%d", r.DegradedCalls),
		})
	}
	return renderTable(headers, out, aligns)
}
