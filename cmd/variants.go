package cmd

import (
	"context"
	"fmt"

	"github.com/ashermasroor/SlowRvbBass/db"
	"github.com/ashermasroor/SlowRvbBass/repository"
	"github.com/ashermasroor/SlowRvbBass/storage"

	"github.com/spf13/cobra"
)

var variantsSource string

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the processed variants of a source",
	Long:  `Print every variant recorded for a source with its parameters, placement state and public URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if variantsSource == "" {
			return fmt.Errorf("--source is required")
		}
		cfg := loadConfig()

		conn, err := db.ConnectDB(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		variants, err := repository.NewSQLAssetRepository(conn).ListVariantsBySource(ctx, variantsSource)
		if err != nil {
			return err
		}
		if len(variants) == 0 {
			fmt.Printf("No variants recorded for source %s\n", variantsSource)
			return nil
		}

		fmt.Printf("Variants of %s: %d\n", variantsSource, len(variants))
		for _, v := range variants {
			state := "local only"
			url := ""
			if v.IsPlaced() {
				state = "placed"
				if v.PlacedAt != nil {
					state += " " + v.PlacedAt.Format("2006-01-02 15:04:05")
				}
				url = storage.PublicObjectURL(cfg.StoragePublicBase, cfg.StorageBucket, v.DurableRef)
			}
			fmt.Printf("  %-16s %-40s %6.1fs  %s\n", v.ID, v.Params, v.Duration, state)
			if url != "" {
				fmt.Printf("  %-16s %s\n", "", url)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)

	variantsCmd.Flags().StringVar(&variantsSource, "source", "", "source id")
}
