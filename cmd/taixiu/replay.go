package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/ingest"
)

const replayBlock = 100

// loadHistory reads a recorded history in any shape the feed normaliser accepts.
func loadHistory(path string) ([]domain.Round, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	rounds, err := ingest.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	return rounds, nil
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var historyPath string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Print the prediction record for a recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			engineCfg, err := cfg.PredictorConfig()
			if err != nil {
				return err
			}
			rounds, err := loadHistory(historyPath)
			if err != nil {
				return err
			}
			svc := predictor.New(engineCfg)
			svc.Seed(rounds)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Predict())
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "JSON history file")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var historyPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Learn a recorded history round by round and report hit rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			engineCfg, err := cfg.PredictorConfig()
			if err != nil {
				return err
			}
			rounds, err := loadHistory(historyPath)
			if err != nil {
				return err
			}
			replay(cmd.OutOrStdout(), predictor.New(engineCfg), rounds)
			return nil
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "JSON history file")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

// blockResult is the hit count for one block of settled rounds.
type blockResult struct {
	From, To int64
	Rounds   int
	Hits     int
}

func (b blockResult) rate() float64 {
	if b.Rounds == 0 {
		return 0
	}
	return float64(b.Hits) / float64(b.Rounds)
}

// replay learns every round and prints the hit rate per block, then the totals.
func replay(w io.Writer, svc *predictor.Service, rounds []domain.Round) []blockResult {
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed)

	var (
		blocks []blockResult
		cur    blockResult
	)
	flush := func() {
		if cur.Rounds == 0 {
			return
		}
		paint := bad
		if cur.rate() >= 0.5 {
			paint = good
		}
		fmt.Fprintf(w, "rounds %6d-%-6d  ", cur.From, cur.To)
		paint.Fprintf(w, "%5.1f%%", cur.rate()*100)
		fmt.Fprintf(w, "  (%d/%d)\n", cur.Hits, cur.Rounds)
		blocks = append(blocks, cur)
		cur = blockResult{}
	}

	for _, r := range rounds {
		st, err := svc.Learn(r)
		if err != nil {
			continue
		}
		if cur.Rounds == 0 {
			cur.From = st.RoundID
		}
		cur.To = st.RoundID
		cur.Rounds++
		if st.Hit {
			cur.Hits++
		}
		if cur.Rounds == replayBlock {
			flush()
		}
	}
	flush()

	stats := svc.Stats()
	fmt.Fprintf(w, "\nsettled %d  hits %d  ", stats.Settled, stats.Hits)
	paint := bad
	if stats.HitRate >= 0.5 {
		paint = good
	}
	paint.Fprintf(w, "hit rate %.1f%%", stats.HitRate*100)
	fmt.Fprintf(w, "  cascade %.1f%%  road changes %d\n", stats.CascadeHitRate*100, stats.RoadChanges)
	return blocks
}
