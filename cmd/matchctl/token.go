package main

import (
	"errors"

	"github.com/spf13/cobra"

	"match-engine/internal/config"
	"match-engine/internal/domain"
	"match-engine/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user ID (local testing against the API)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		tier, _ := cmd.Flags().GetString("tier")

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not configured")
		}

		jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL)
		token, expiresIn, err := jwtSvc.IssueAccessToken(domain.User{ID: userID, PlanTier: domain.PlanTier(tier)})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"access_token": token,
			"expires_in":   expiresIn,
		})
	},
}

func init() {
	tokenCmd.Flags().StringP("user", "u", "", "user ID to put in the token subject")
	tokenCmd.Flags().String("tier", "free", "plan tier claim")
	_ = tokenCmd.MarkFlagRequired("user")
}
