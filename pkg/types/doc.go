// Package types defines the canonical annotation model used throughout labelkit.
//
// This package contains the format-independent representation of a labeled asset:
//   - Label: a DataRow reference plus an ordered list of annotations
//   - DataRow: the labeled asset, identified by id or global key
//   - FeatureSchema: the class identity of an annotation (name and/or schema id)
//   - Annotation: common fields plus a tagged Value payload
//
// # Annotation Values
//
// An Annotation carries exactly one Value:
//   - Geometry: Point, Line, Polygon, Rectangle, Mask
//   - TextEntity: a half-open [start, end) span of UTF-16 code units
//   - Classification: Radio, Checklist, Text
//
// Classification answers may nest further classifications; the structure is a tree.
//
// # Validation
//
// Labels are value objects. BuildLabel validates every invariant before returning:
//
//	label, err := types.BuildLabel(dataRow, annotations, types.WithUID("ckx..."))
//	if errors.Is(err, types.ErrValidation) {
//	    // Handle validation error
//	}
//
// # Dict Form
//
// ToDict and FromDict translate between a Label and its deterministic map rendering.
// The rendering is shared by the NDJSON codec and the native serializer. Absent
// optional fields are dropped and Extra maps are merged after canonical fields.
package types
