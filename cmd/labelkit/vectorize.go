package labelkit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/labelkit/pkg/ndjson"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/vectorize"
)

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Turn a segmentation mask into polygon annotations",
	Long: `Vectorize reads a single-channel mask image and a YAML legend mapping
pixel values to class names, traces every connected region and simplifies it
with Douglas-Peucker until it fits the point budget.

The result is one NDJSON Label for the given data row. Pixel value 0 is
background and values missing from the legend are ignored.`,
	RunE: runVectorize,
}

func init() {
	rootCmd.AddCommand(vectorizeCmd)

	vectorizeCmd.Flags().String("mask", "", "mask image (PNG, GIF, BMP, TIFF)")
	vectorizeCmd.Flags().String("legend", "", "YAML legend mapping pixel values to class names")
	vectorizeCmd.Flags().Int("max-points", 0, "maximum polygon vertices; overrides vectorize.max_points")
	vectorizeCmd.Flags().Float64("epsilon", 0, "fixed simplification tolerance; overrides vectorize.epsilon")
	vectorizeCmd.Flags().String("data-row-id", "", "data row id of the label")
	vectorizeCmd.Flags().String("global-key", "", "data row global key of the label")
	vectorizeCmd.Flags().StringP("output", "o", "-", "NDJSON output file, - for stdout")

	vectorizeCmd.MarkFlagRequired("mask")
	vectorizeCmd.MarkFlagRequired("legend")
	vectorizeCmd.MarkFlagsMutuallyExclusive("data-row-id", "global-key")
	vectorizeCmd.MarkFlagsOneRequired("data-row-id", "global-key")
}

func runVectorize(cmd *cobra.Command, args []string) error {
	rt, err := newSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	maskPath, _ := cmd.Flags().GetString("mask")
	legendPath, _ := cmd.Flags().GetString("legend")

	legend, err := vectorize.LoadLegend(legendPath)
	if err != nil {
		return err
	}
	grid, err := vectorize.LoadMask(maskPath)
	if err != nil {
		return err
	}

	opts := rt.client.VectorizeOptions()
	if cmd.Flags().Changed("max-points") {
		n, _ := cmd.Flags().GetInt("max-points")
		opts.MaxPoints = &n
	}
	if cmd.Flags().Changed("epsilon") {
		eps, _ := cmd.Flags().GetFloat64("epsilon")
		opts.Epsilon = &eps
	}

	var dr types.DataRow
	dr.ID, _ = cmd.Flags().GetString("data-row-id")
	dr.GlobalKey, _ = cmd.Flags().GetString("global-key")

	label, err := rt.client.VectorizeLabel(dr, grid, legend, opts)
	if err != nil {
		return fmt.Errorf("vectorize %s: %w", maskPath, err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	out, err := createOutput(cmd, outPath)
	if err != nil {
		return err
	}
	if err := ndjson.NewWriter(out).Write(label); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
