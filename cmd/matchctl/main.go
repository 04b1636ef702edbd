package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const app = "matchctl"

// Se puede fijar en el build con -ldflags.
var version = "dev"

var (
	debug bool

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchctl evaluates and ranks profiles offline and runs match-engine maintenance tasks",
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s version: %s\n", app, version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.AddCommand(versionCmd, evaluateCmd, rankCmd, tokenCmd, purgeUsageCmd, migrateCmd)
}

func newLogger() *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
