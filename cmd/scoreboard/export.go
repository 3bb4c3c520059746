package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

type exportRow struct {
	Rank        int        `json:"rank"`
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	TotalScore  float64    `json:"totalScore"`
	RoundScores []*float64 `json:"roundScores"`
}

type export struct {
	CurrentRound int         `json:"currentRound"`
	Standings    []exportRow `json:"standings"`
}

func newExportCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the current standings as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			s, err := scoreboard.NewLedger(b.store, cfg.ScoreMode, logger).State(cmd.Context())
			if err != nil {
				return err
			}
			out := buildExport(s)

			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			return nil
		},
	}
}

func buildExport(s scoreboard.State) export {
	out := export{CurrentRound: s.CurrentRound, Standings: []exportRow{}}
	for i, p := range scoreboard.Ranking(s) {
		out.Standings = append(out.Standings, exportRow{
			Rank:        i + 1,
			ID:          p.ID,
			Name:        p.Name,
			TotalScore:  p.TotalScore,
			RoundScores: p.RoundScores,
		})
	}
	return out
}
