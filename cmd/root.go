package cmd

import (
	"fmt"
	"os"

	"github.com/ashermasroor/SlowRvbBass/config"
	"github.com/ashermasroor/SlowRvbBass/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slowrvb",
	Short: "SlowRvbBass turns a song URL into slowed, reverbed and bass-boosted audio.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// loadConfig reads configuration and initializes the global logger from it.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.DefaultConfig(cfg.LogLevel, cfg.LogFile))
	return cfg
}

// Execute executes the root command.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
