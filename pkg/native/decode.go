package native

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/soundprediction/labelkit/pkg/geometry"
	"github.com/soundprediction/labelkit/pkg/types"
)

// Instance object keys of V3 exports.
const (
	instanceGeometry = "geometry"
	instanceBBox     = "bbox"
	instanceSchemaID = "schemaId"
)

// member is one key of a JSON object, kept in document order.
type member struct {
	key   string
	value json.RawMessage
}

// Decode converts an export record into a Label. Classes are visited in the
// order they appear in the payload and instances in list order. A payload
// that is not a JSON object yields a Label without annotations.
func Decode(rec Record, format Format) (types.Label, error) {
	if err := format.Validate(); err != nil {
		return types.Label{}, err
	}

	var anns []types.Annotation
	var err error
	switch format {
	case FormatObjects:
		anns, err = decodeObjects(rec.Label)
	default:
		anns, err = decodeLegacy(rec.Label, format)
	}
	if err != nil {
		return types.Label{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	opts := []types.LabelOption{
		types.WithUID(rec.ID),
		types.WithBenchmarkReference(rec.IsBenchmarkReference),
	}
	if len(rec.Extra) > 0 {
		opts = append(opts, types.WithExtra(rec.Extra))
	}
	l, err := types.BuildLabel(DataRowOf(rec), anns, opts...)
	if err != nil {
		return types.Label{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return l, nil
}

// DataRowOf resolves the data row of a record: the data row id, else the
// global key, else the label id.
func DataRowOf(rec Record) types.DataRow {
	dr := types.DataRow{URL: rec.LabeledData}
	switch {
	case rec.DataRowID != "":
		dr.ID = rec.DataRowID
	case rec.GlobalKey != "":
		dr.GlobalKey = rec.GlobalKey
	default:
		dr.ID = rec.ID
	}
	return dr
}

func decodeObjects(raw json.RawMessage) ([]types.Annotation, error) {
	if !isObject(raw) {
		return nil, nil
	}
	var payload struct {
		Annotations []map[string]any `json:"annotations"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, types.NewDecodeError("Label.annotations", err)
	}
	anns := make([]types.Annotation, 0, len(payload.Annotations))
	for _, m := range payload.Annotations {
		a, err := types.AnnotationFromDict(m)
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
	}
	return anns, nil
}

func decodeLegacy(raw json.RawMessage, format Format) ([]types.Annotation, error) {
	members, ok, err := orderedMembers(raw)
	if err != nil || !ok {
		return nil, err
	}

	var anns []types.Annotation
	for _, m := range members {
		var value any
		if err := json.Unmarshal(m.value, &value); err != nil {
			return nil, types.NewDecodeError(m.key, err)
		}
		var class []types.Annotation
		if format == FormatWKT {
			class, err = decodeWKTClass(m.key, value)
		} else {
			class, err = decodeXYClass(m.key, value)
		}
		if err != nil {
			return nil, err
		}
		anns = append(anns, class...)
	}
	return anns, nil
}

// decodeWKTClass reads a WKT string or a list of instance objects. Values of
// any other shape are classification payloads and are ignored.
func decodeWKTClass(class string, value any) ([]types.Annotation, error) {
	switch v := value.(type) {
	case string:
		if !geometry.LooksLikeWKT(v) {
			return nil, nil
		}
		return polygonsFromWKT(class, v, types.FeatureSchema{Name: class}, nil)
	case []any:
		var out []types.Annotation
		for i, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			field := fmt.Sprintf("%s[%d]", class, i)
			schema, extra := instanceSchema(class, obj)
			if g, ok := obj[instanceGeometry]; ok {
				s, ok := g.(string)
				if !ok {
					return nil, types.NewValidationError(field+".geometry", "expected wkt string, got %T", g)
				}
				anns, err := polygonsFromWKT(field, s, schema, extra)
				if err != nil {
					return nil, err
				}
				out = append(out, anns...)
				continue
			}
			if b, ok := obj[instanceBBox]; ok {
				a, err := rectangleAnnotation(field, b, schema, extra)
				if err != nil {
					return nil, err
				}
				out = append(out, a)
			}
		}
		return out, nil
	}
	return nil, nil
}

// decodeXYClass reads a list of point lists, each bare or wrapped in an
// instance object. Entries that are not point lists are ignored.
func decodeXYClass(class string, value any) ([]types.Annotation, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, nil
	}

	var out []types.Annotation
	for i, entry := range list {
		field := fmt.Sprintf("%s[%d]", class, i)
		switch e := entry.(type) {
		case []any:
			pts, ok := pointList(e)
			if !ok {
				continue
			}
			out = append(out, types.Annotation{
				Schema: types.FeatureSchema{Name: class},
				Value:  types.NewPolygon(pts),
			})
		case map[string]any:
			schema, extra := instanceSchema(class, e)
			if g, ok := e[instanceGeometry]; ok {
				items, ok := g.([]any)
				if !ok {
					return nil, types.NewValidationError(field+".geometry", "expected point list, got %T", g)
				}
				pts, ok := pointList(items)
				if !ok {
					return nil, types.NewValidationError(field+".geometry", "expected {x, y} points")
				}
				out = append(out, types.Annotation{Schema: schema, Extra: extra, Value: types.NewPolygon(pts)})
				continue
			}
			if b, ok := e[instanceBBox]; ok {
				a, err := rectangleAnnotation(field, b, schema, extra)
				if err != nil {
					return nil, err
				}
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func polygonsFromWKT(field, s string, schema types.FeatureSchema, extra map[string]any) ([]types.Annotation, error) {
	polys, err := geometry.ParseWKT(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	out := make([]types.Annotation, len(polys))
	for i, p := range polys {
		out[i] = types.Annotation{Schema: schema, Extra: extra, Value: p}
	}
	return out, nil
}

func rectangleAnnotation(field string, v any, schema types.FeatureSchema, extra map[string]any) (types.Annotation, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return types.Annotation{}, types.NewValidationError(field+".bbox", "expected object, got %T", v)
	}
	var r types.Rectangle
	for _, f := range []struct {
		key string
		dst *float64
	}{{"top", &r.Top}, {"left", &r.Left}, {"width", &r.Width}, {"height", &r.Height}} {
		n, ok := obj[f.key].(float64)
		if !ok {
			return types.Annotation{}, types.NewValidationError(field+".bbox."+f.key, "expected number")
		}
		*f.dst = n
	}
	return types.Annotation{Schema: schema, Extra: extra, Value: r}, nil
}

// instanceSchema returns the schema of a V3 instance object and the keys it
// carries beyond geometry.
func instanceSchema(class string, obj map[string]any) (types.FeatureSchema, map[string]any) {
	schema := types.FeatureSchema{Name: class}
	var extra map[string]any
	for k, v := range obj {
		switch k {
		case instanceGeometry, instanceBBox:
		case instanceSchemaID:
			if s, ok := v.(string); ok {
				schema.SchemaID = s
				continue
			}
			fallthrough
		default:
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[k] = v
		}
	}
	return schema, extra
}

// pointList converts a list of {x, y} objects. ok is false when any entry
// is not a point.
func pointList(items []any) ([]types.Point, bool) {
	if len(items) == 0 {
		return nil, false
	}
	pts := make([]types.Point, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		x, okX := obj["x"].(float64)
		y, okY := obj["y"].(float64)
		if !okX || !okY {
			return nil, false
		}
		pts = append(pts, types.Point{X: x, Y: y})
	}
	return pts, true
}

// orderedMembers splits a JSON object into its members in document order.
// ok is false when raw is not an object.
func orderedMembers(raw json.RawMessage) ([]member, bool, error) {
	if !isObject(raw) {
		return nil, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, false, types.NewDecodeError("Label", err)
	}

	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, types.NewDecodeError("Label", err)
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false, types.NewDecodeError(key, err)
		}
		out = append(out, member{key: key, value: v})
	}
	return out, true, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
