package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ashermasroor/SlowRvbBass/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect and manage the durable storage bucket",
	Long:  `List objects, show bucket statistics, print the directory tree or delete everything under a prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fmt.Printf("Storage: %s, Bucket: %s\n", cfg.StorageEndpoint, cfg.StorageBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		out := os.Stdout

		switch {
		case minioDelete:
			if minioPrefix == "" {
				return fmt.Errorf("--delete requires --prefix")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %d objects under %q\n", n, minioPrefix)
		case minioRecursive:
			objects, stats, err := store.List(ctx, minioPrefix, true)
			if err != nil {
				return err
			}
			storage.PrintTree(out, objects)
			if minioStats {
				storage.PrintStats(out, stats)
			}
		case minioStats:
			stats, err := store.Stats(ctx, minioPrefix)
			if err != nil {
				return err
			}
			storage.PrintStats(out, stats)
		default:
			objects, stats, err := store.List(ctx, minioPrefix, false)
			if err != nil {
				return err
			}
			storage.PrintObjects(out, store.Bucket(), minioPrefix, objects, stats)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "filter objects by prefix, or the prefix to operate on")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "show bucket statistics")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "print the directory tree")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")

	minioCmd.Example = `  # list objects at the bucket root
  slowrvb minio

  # list processed variants
  slowrvb minio -p "processed/"

  # bucket statistics
  slowrvb minio -s

  # directory tree with statistics
  slowrvb minio -r -s -p "processed/"

  # delete everything under a prefix
  slowrvb minio -d -p "processed/"`
}
