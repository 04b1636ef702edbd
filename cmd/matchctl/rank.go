package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"match-engine/internal/service"
)

// timeNow se reemplaza en tests para fijar la fecha de evaluación.
var timeNow = time.Now

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a candidate pool file for one requester record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		requesterPath, _ := cmd.Flags().GetString("requester")
		poolPath, _ := cmd.Flags().GetString("pool")
		swiped, _ := cmd.Flags().GetString("swiped")
		limit, _ := cmd.Flags().GetInt("limit")
		workers, _ := cmd.Flags().GetInt("workers")
		threshold, _ := cmd.Flags().GetInt("dm-threshold")

		requester, err := readRecord(requesterPath)
		if err != nil {
			return err
		}
		pool, err := readPool(poolPath)
		if err != nil {
			return err
		}

		clock := func() time.Time { return timeNow() }
		evaluator := service.NewCompatibilityEvaluator(clock)
		ranker := service.NewCandidateRanker(evaluator, workers, clock).WithChatGate(service.NewChatGate(threshold))

		res, err := ranker.Rank(cmd.Context(), service.RankRequest{
			Requester: service.DefaultNormalizer.Normalize(requester),
			Pool:      service.DefaultNormalizer.NormalizeAll(pool),
			Swiped:    splitIDs(swiped),
			Limit:     limit,
		})
		if err != nil {
			return err
		}
		logger.Info("pool ranked",
			zap.String("requester", requester.UserID),
			zap.Int("pool", len(pool)),
			zap.Int("evaluated", res.Evaluated),
			zap.Int("returned", len(res.Candidates)),
		)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rankCmd.Flags().StringP("requester", "r", "", "requester record JSON file")
	rankCmd.Flags().StringP("pool", "p", "", "JSON array of candidate records (- for stdin)")
	rankCmd.Flags().String("swiped", "", "comma separated candidate IDs to exclude")
	rankCmd.Flags().IntP("limit", "n", 10, "maximum number of candidates to return")
	rankCmd.Flags().Int("workers", 8, "parallel evaluations")
	rankCmd.Flags().Int("dm-threshold", 80, "overall score above which direct messages unlock")
	_ = rankCmd.MarkFlagRequired("requester")
	_ = rankCmd.MarkFlagRequired("pool")
}
