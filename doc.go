// Package labelkit converts data-labeling platform annotations between the
// platform's native export JSON, an in-memory annotation model, NDJSON upload
// rows and third-party dataset formats.
//
// # Annotation model
//
// A types.Label aggregates a data row reference and an ordered list of
// annotations. Each types.Annotation carries a feature schema, optional
// confidence and custom metrics, an opaque Extra map and one Value: a point,
// line, polygon, rectangle, mask, text entity or a radio, checklist or text
// classification.
//
//	dr, _ := types.NewDataRow("ckdata123", "", "")
//	label, err := types.BuildLabel(dr, []types.Annotation{{
//		Schema: types.FeatureSchema{Name: "cat"},
//		Value:  types.NewPolygon([]types.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}),
//	}})
//
// # Export
//
// Client.ExportCOCO and Client.ExportVOC read a JSON array of export records
// in one of the native label formats (WKT, XY or the canonical OBJECTS form),
// fetch each image and emit a COCO document or one Pascal VOC XML file per
// image:
//
//	client := labelkit.NewClient(config.Default(), nil, nil)
//	doc, err := client.ExportCOCO(ctx, file, native.FormatWKT)
//	if err != nil {
//		return err
//	}
//	return coco.Encode(os.Stdout, doc)
//
// Labels whose image cannot be fetched are logged at WARN and skipped.
//
// # Vectorizing masks
//
// Client.VectorizeLabel turns a segmentation grid and a legend of pixel value
// to class name into polygon annotations, simplified with Douglas-Peucker to
// a vertex budget.
//
// # NDJSON
//
// The ndjson package reads line-delimited JSON lazily and renders labels as
// per-annotation upload rows.
package labelkit
