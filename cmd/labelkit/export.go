package labelkit

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundprediction/labelkit/pkg/coco"
	"github.com/soundprediction/labelkit/pkg/voc"
)

var cocoCmd = &cobra.Command{
	Use:   "coco",
	Short: "Convert a label export to a COCO dataset",
	Long: `Convert a JSON array of label export records to a COCO document.

Images are fetched to read their dimensions. Records whose image cannot be
fetched are skipped with a warning.`,
	RunE: runCOCO,
}

var vocCmd = &cobra.Command{
	Use:   "voc",
	Short: "Convert a label export to Pascal VOC annotations",
	Long: `Convert a JSON array of label export records to one Pascal VOC XML
file per label, writing the fetched images alongside.

Only polygons and rectangles are exported; labels without either are skipped.`,
	RunE: runVOC,
}

func init() {
	rootCmd.AddCommand(cocoCmd)
	rootCmd.AddCommand(vocCmd)

	cocoCmd.Flags().StringP("input", "i", "-", "export file (JSON array), - for stdin")
	cocoCmd.Flags().StringP("output", "o", "-", "COCO output file, - for stdout")
	cocoCmd.Flags().StringP("format", "f", "", "label format (WKT, XY, OBJECTS); defaults to export.label_format")

	vocCmd.Flags().StringP("input", "i", "-", "export file (JSON array), - for stdin")
	vocCmd.Flags().String("annotations-dir", "annotations", "directory for the XML files")
	vocCmd.Flags().String("images-dir", "images", "directory for the images")
	vocCmd.Flags().StringP("format", "f", "", "label format (WKT, XY, OBJECTS); defaults to export.label_format")
	vocCmd.Flags().String("image-format", "", "re-encode images (jpg, png); overrides export.voc_image_format")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runCOCO(cmd *cobra.Command, args []string) error {
	rt, err := newSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	name, _ := cmd.Flags().GetString("format")
	format, err := rt.client.ParseFormat(name)
	if err != nil {
		return err
	}

	inPath, _ := cmd.Flags().GetString("input")
	in, err := openInput(cmd, inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	doc, err := rt.client.ExportCOCO(ctx, in, format)
	if err != nil {
		return fmt.Errorf("coco export: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	out, err := createOutput(cmd, outPath)
	if err != nil {
		return err
	}
	if err := coco.Encode(out, doc); err != nil {
		out.Close()
		return fmt.Errorf("write coco document: %w", err)
	}
	return out.Close()
}

func runVOC(cmd *cobra.Command, args []string) error {
	rt, err := newSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	if cmd.Flags().Changed("image-format") {
		rt.cfg.Export.VOCImageFormat, _ = cmd.Flags().GetString("image-format")
		if err := rt.cfg.Validate(); err != nil {
			return err
		}
	}

	name, _ := cmd.Flags().GetString("format")
	format, err := rt.client.ParseFormat(name)
	if err != nil {
		return err
	}

	inPath, _ := cmd.Flags().GetString("input")
	in, err := openInput(cmd, inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	annotationsDir, _ := cmd.Flags().GetString("annotations-dir")
	imagesDir, _ := cmd.Flags().GetString("images-dir")

	outputs, err := rt.client.ExportVOC(ctx, in, format, imagesDir)
	if err != nil {
		return fmt.Errorf("voc export: %w", err)
	}
	if err := voc.WriteOutputs(outputs, annotationsDir, imagesDir); err != nil {
		return err
	}
	rt.client.Logger().Info("wrote voc annotations",
		"labels", len(outputs), "annotations_dir", filepath.Clean(annotationsDir), "images_dir", filepath.Clean(imagesDir))
	return nil
}

