package labelkit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/labelkit"
)

var ndjsonCmd = &cobra.Command{
	Use:   "ndjson",
	Short: "Validate and transform NDJSON annotation imports",
}

var ndjsonValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every line decodes to a valid Label",
	RunE:  runNDJSONValidate,
}

var ndjsonRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Flatten Labels into one import row per annotation",
	Long: `Rows reads NDJSON Labels and writes one NDJSON row per annotation, each
carrying its data row reference and a uuid. Existing uuids are kept.`,
	RunE: runNDJSONRows,
}

func init() {
	rootCmd.AddCommand(ndjsonCmd)
	ndjsonCmd.AddCommand(ndjsonValidateCmd)
	ndjsonCmd.AddCommand(ndjsonRowsCmd)

	ndjsonValidateCmd.Flags().StringP("input", "i", "-", "NDJSON file, - for stdin")

	ndjsonRowsCmd.Flags().StringP("input", "i", "-", "NDJSON file, - for stdin")
	ndjsonRowsCmd.Flags().StringP("output", "o", "-", "NDJSON output file, - for stdout")
}

func runNDJSONValidate(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("input")
	in, err := openInput(cmd, inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	labels, err := labelkit.ReadLabels(in)
	if err != nil {
		return err
	}
	annotations := 0
	for _, l := range labels {
		annotations += len(l.Annotations)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "valid: %d labels, %d annotations\n", len(labels), annotations)
	return nil
}

func runNDJSONRows(cmd *cobra.Command, args []string) error {
	rt, err := newSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	inPath, _ := cmd.Flags().GetString("input")
	in, err := openInput(cmd, inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	outPath, _ := cmd.Flags().GetString("output")
	out, err := createOutput(cmd, outPath)
	if err != nil {
		return err
	}
	if _, err := rt.client.WriteUploadRows(in, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
