package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"match-engine/internal/service"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score one ordered pair of profile records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		requesterPath, _ := cmd.Flags().GetString("requester")
		candidatePath, _ := cmd.Flags().GetString("candidate")
		variantName, _ := cmd.Flags().GetString("variant")
		threshold, _ := cmd.Flags().GetInt("dm-threshold")

		variant, err := parseVariant(variantName)
		if err != nil {
			return err
		}
		requester, err := readRecord(requesterPath)
		if err != nil {
			return err
		}
		candidate, err := readRecord(candidatePath)
		if err != nil {
			return err
		}

		evaluator := service.NewCompatibilityEvaluator(nil)
		res := evaluator.EvaluateAt(
			timeNow(),
			service.DefaultNormalizer.Normalize(requester),
			service.DefaultNormalizer.Normalize(candidate),
			variant,
		)
		logger.Debug("pair evaluated",
			zap.String("requester", requester.UserID),
			zap.String("candidate", candidate.UserID),
			zap.Int("overall", res.OverallScore),
		)
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"requester_id":         requester.UserID,
			"candidate_id":         candidate.UserID,
			"result":               res,
			"can_message_directly": service.NewChatGate(threshold).CanMessageDirectly(res.OverallScore),
		})
	},
}

func init() {
	evaluateCmd.Flags().StringP("requester", "r", "", "requester record JSON file (- for stdin)")
	evaluateCmd.Flags().StringP("candidate", "c", "", "candidate record JSON file")
	evaluateCmd.Flags().String("variant", "extended", "scoring variant: base or extended")
	evaluateCmd.Flags().Int("dm-threshold", 80, "overall score above which direct messages unlock")
	_ = evaluateCmd.MarkFlagRequired("requester")
	_ = evaluateCmd.MarkFlagRequired("candidate")
}

func parseVariant(name string) (service.ScoringVariant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "base":
		return service.VariantBase, nil
	case "", "extended":
		return service.VariantExtended, nil
	default:
		return 0, fmt.Errorf("unknown variant %q (want base or extended)", name)
	}
}
