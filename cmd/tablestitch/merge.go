package main

import (
	"github.com/spf13/cobra"

	pageimage "table-stitcher/internal/image"
)

var (
	mergeOut string
	mergeGap int
)

var mergeCmd = &cobra.Command{
	Use:   "merge <top> <bottom>",
	Short: "Stack two table images into one",
	Long: `Stack two table images vertically, scaling both to the wider width
and separating them with blank rows. Use this to stitch halves that
detection did not pair.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, err := pageimage.Load(args[0])
		if err != nil {
			return err
		}
		bottom, err := pageimage.Load(args[1])
		if err != nil {
			return err
		}

		gap := cfg.MergeGap
		if cmd.Flags().Changed("gap") {
			gap = mergeGap
		}

		merged := pageimage.MergeVertical(top, bottom, gap)
		if err := pageimage.SavePNG(mergeOut, merged); err != nil {
			return err
		}

		logger.Info("merged table images",
			"output", mergeOut,
			"width", merged.Bounds().Dx(),
			"height", merged.Bounds().Dy(),
		)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "output", "o", "merged_table.png", "output PNG path")
	mergeCmd.Flags().IntVar(&mergeGap, "gap", pageimage.DefaultMergeGap, "blank rows between the images")
}
