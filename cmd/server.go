package cmd

import (
	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the SlowRvbBass HTTP server",
	Long:  `Start the HTTP API: /upload, /effects, /stream/{id}, /download/{id} and /health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg := loadConfig()
	logger.Info("Starting SlowRvbBass server...", logger.String("port", cfg.Port))
	return server.Start(cfg)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
