package cmd

import (
	"context"
	"fmt"

	"github.com/ashermasroor/SlowRvbBass/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Connect to the configured Redis and run a set/get/delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if !cfg.RedisEnabled() {
			return fmt.Errorf("REDIS_HOST is not set; the variant cache is disabled")
		}
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		ctx := context.Background()
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		fmt.Println("Redis connection successful.")

		if err := cache.TestRedis(ctx, client); err != nil {
			return err
		}
		fmt.Println("Redis read/write test passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
