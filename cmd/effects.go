package cmd

import (
	"fmt"

	"github.com/ashermasroor/SlowRvbBass/core/effects"
	"github.com/ashermasroor/SlowRvbBass/core/identity"
	"github.com/ashermasroor/SlowRvbBass/model"

	"github.com/spf13/cobra"
)

var (
	fxSource string
	fxSpeed  float64
	fxReverb float64
	fxBass   bool
)

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "Show the effect chain and variant id for a parameter set",
	Long:  `Compile effect parameters into their ordered stages and print the ffmpeg filter graph. Nothing is run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := model.EffectParameters{Speed: fxSpeed, Reverb: fxReverb, BassBoost: fxBass}
		stages, err := effects.Compile(params)
		if err != nil {
			return err
		}

		fmt.Printf("Parameters: %s\n", effects.Normalize(params))
		if fxSource != "" {
			fmt.Printf("Variant ID: %s\n", identity.DeriveVariantID(fxSource, params))
		}
		if len(stages) == 0 {
			fmt.Println("Stages:     none (plain re-encode)")
			return nil
		}
		fmt.Println("Stages:")
		for i, s := range stages {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
		fmt.Printf("Filter graph: %s\n", effects.Render(stages))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(effectsCmd)

	effectsCmd.Flags().StringVar(&fxSource, "source", "", "source id, to also print the derived variant id")
	effectsCmd.Flags().Float64Var(&fxSpeed, "speed", model.DefaultSpeed, "playback speed multiplier")
	effectsCmd.Flags().Float64Var(&fxReverb, "reverb", model.DefaultReverb, "reverb amount, 0 to 100")
	effectsCmd.Flags().BoolVar(&fxBass, "bass-boost", model.DefaultBassBoost, "apply the bass boost stage")
}
