package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromDict decodes the rendering produced by ToDict. Unknown keys land in
// Extra; structural errors are reported as DecodeError and invariant
// violations as ValidationError.
func FromDict(m map[string]any) (Label, error) {
	if m == nil {
		return Label{}, NewDecodeError("label", fmt.Errorf("expected object"))
	}

	var opts []LabelOption
	extra := make(map[string]any)
	var dataRow DataRow
	var annotations []Annotation
	haveDataRow := false

	for k, v := range m {
		switch k {
		case keyDataRow:
			obj, err := asObject(keyDataRow, v)
			if err != nil {
				return Label{}, err
			}
			if dataRow, err = dataRowFromDict(obj); err != nil {
				return Label{}, err
			}
			haveDataRow = true
		case keyUID:
			s, err := asString(keyUID, v)
			if err != nil {
				return Label{}, err
			}
			opts = append(opts, WithUID(s))
		case keyAnnotations:
			list, err := asArray(keyAnnotations, v)
			if err != nil {
				return Label{}, err
			}
			annotations = make([]Annotation, 0, len(list))
			for i, item := range list {
				field := fmt.Sprintf("%s[%d]", keyAnnotations, i)
				obj, err := asObject(field, item)
				if err != nil {
					return Label{}, err
				}
				a, err := annotationFromDict(field, obj)
				if err != nil {
					return Label{}, err
				}
				annotations = append(annotations, a)
			}
		case keyBenchmark:
			b, ok := v.(bool)
			if !ok {
				return Label{}, typeError(keyBenchmark, "boolean", v)
			}
			opts = append(opts, WithBenchmarkReference(b))
		default:
			extra[k] = v
		}
	}
	if !haveDataRow {
		return Label{}, NewValidationError(keyDataRow, "data row is required")
	}
	if len(extra) > 0 {
		opts = append(opts, WithExtra(extra))
	}
	return BuildLabel(dataRow, annotations, opts...)
}

// AnnotationFromDict decodes a single annotation object. Polygon rings are
// closed; invariants are checked when the annotation joins a Label.
func AnnotationFromDict(m map[string]any) (Annotation, error) {
	return annotationFromDict("annotation", m)
}

func annotationFromDict(field string, m map[string]any) (Annotation, error) {
	var payload string
	for _, k := range payloadKeys {
		if _, ok := m[k]; !ok {
			continue
		}
		if payload != "" {
			return Annotation{}, NewValidationError(field, "annotation has both %q and %q", payload, k)
		}
		payload = k
	}
	if payload == "" {
		return Annotation{}, NewValidationError(field, "annotation has no value")
	}
	if _, ok := m[keyHoles]; ok && payload != keyPolygon {
		return Annotation{}, NewValidationError(field, "holes are only valid on polygons")
	}

	var a Annotation
	extra := make(map[string]any)
	for k, v := range m {
		var err error
		f := field + "." + k
		switch k {
		case keyName:
			a.Schema.Name, err = asString(f, v)
		case keySchemaID:
			a.Schema.SchemaID, err = asString(f, v)
		case keyConfidence:
			var c float64
			c, err = asNumber(f, v)
			a.Confidence = &c
		case keyCustomMetrics:
			a.CustomMetrics, err = metricsFromDict(f, v)
		case keyClassifications:
			a.Classifications, err = annotationsFromList(f, v)
		case keyHoles:
			// decoded with the polygon
		case keyPoint, keyLine, keyPolygon, keyBBox, keyMask, keyLocation, keyAnswer:
			a.Value, err = valueFromDict(f, k, v, m[keyHoles])
		default:
			extra[k] = v
		}
		if err != nil {
			return Annotation{}, err
		}
	}
	if a.Schema.Name == "" && a.Schema.SchemaID == "" {
		return Annotation{}, NewValidationError(field, "one of name or schema_id is required")
	}
	if len(extra) > 0 {
		a.Extra = extra
	}
	return a.normalize(), nil
}

func valueFromDict(field, key string, v, holes any) (Value, error) {
	switch key {
	case keyPoint:
		return pointFromDict(field, v)
	case keyLine:
		pts, err := pointsFromList(field, v)
		if err != nil {
			return nil, err
		}
		return Line{Points: pts}, nil
	case keyPolygon:
		ext, err := pointsFromList(field, v)
		if err != nil {
			return nil, err
		}
		var rings [][]Point
		if holes != nil {
			list, err := asArray(keyHoles, holes)
			if err != nil {
				return nil, err
			}
			for i, h := range list {
				ring, err := pointsFromList(fmt.Sprintf("%s[%d]", keyHoles, i), h)
				if err != nil {
					return nil, err
				}
				rings = append(rings, ring)
			}
		}
		return NewPolygon(ext, rings...), nil
	case keyBBox:
		obj, err := asObject(field, v)
		if err != nil {
			return nil, err
		}
		var r Rectangle
		for _, f := range []struct {
			name string
			dst  *float64
		}{{"top", &r.Top}, {"left", &r.Left}, {"height", &r.Height}, {"width", &r.Width}} {
			if *f.dst, err = requiredNumber(obj, field, f.name); err != nil {
				return nil, err
			}
		}
		return r, nil
	case keyMask:
		return maskFromDict(field, v)
	case keyLocation:
		obj, err := asObject(field, v)
		if err != nil {
			return nil, err
		}
		start, err := requiredInt(obj, field, "start")
		if err != nil {
			return nil, err
		}
		end, err := requiredInt(obj, field, "end")
		if err != nil {
			return nil, err
		}
		return TextEntity{Start: start, End: end}, nil
	case keyAnswer:
		return answerValueFromDict(field, v)
	}
	return nil, NewDecodeError(field, fmt.Errorf("unsupported payload %q", key))
}

// answerValueFromDict maps the answer shape to its classification: a string is
// Text, an object is Radio and an array is Checklist.
func answerValueFromDict(field string, v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return Text{Answer: t}, nil
	case map[string]any:
		ans, err := answerFromDict(field, t)
		if err != nil {
			return nil, err
		}
		return Radio{Answer: ans}, nil
	case []any:
		answers := make([]ClassificationAnswer, 0, len(t))
		for i, item := range t {
			f := fmt.Sprintf("%s[%d]", field, i)
			obj, err := asObject(f, item)
			if err != nil {
				return nil, err
			}
			ans, err := answerFromDict(f, obj)
			if err != nil {
				return nil, err
			}
			answers = append(answers, ans)
		}
		return Checklist{Answers: answers}, nil
	}
	return nil, typeError(field, "string, object or array", v)
}

func answerFromDict(field string, m map[string]any) (ClassificationAnswer, error) {
	var a ClassificationAnswer
	extra := make(map[string]any)
	for k, v := range m {
		var err error
		f := field + "." + k
		switch k {
		case keyName:
			a.Schema.Name, err = asString(f, v)
		case keySchemaID:
			a.Schema.SchemaID, err = asString(f, v)
		case keyConfidence:
			var c float64
			c, err = asNumber(f, v)
			a.Confidence = &c
		case keyKeyframe:
			b, ok := v.(bool)
			if !ok {
				err = typeError(f, "boolean", v)
			}
			a.Keyframe = &b
		case keyClassifications:
			a.Classifications, err = annotationsFromList(f, v)
		default:
			extra[k] = v
		}
		if err != nil {
			return ClassificationAnswer{}, err
		}
	}
	if len(extra) > 0 {
		a.Extra = extra
	}
	return a, nil
}

func maskFromDict(field string, v any) (Value, error) {
	obj, err := asObject(field, v)
	if err != nil {
		return nil, err
	}
	value, err := requiredInt(obj, field, "value")
	if err != nil {
		return nil, err
	}
	m := Mask{Value: value}
	if uri, ok := obj["instanceURI"]; ok {
		if m.URI, err = asString(field+".instanceURI", uri); err != nil {
			return nil, err
		}
	}
	if raw, ok := obj["raster"]; ok {
		rows, err := asArray(field+".raster", raw)
		if err != nil {
			return nil, err
		}
		m.Raster = make([][]int, len(rows))
		for i, row := range rows {
			f := fmt.Sprintf("%s.raster[%d]", field, i)
			cells, err := asArray(f, row)
			if err != nil {
				return nil, err
			}
			m.Raster[i] = make([]int, len(cells))
			for j, c := range cells {
				if m.Raster[i][j], err = asInt(fmt.Sprintf("%s[%d]", f, j), c); err != nil {
					return nil, err
				}
			}
		}
	}
	return m, nil
}

func dataRowFromDict(m map[string]any) (DataRow, error) {
	var d DataRow
	for k, v := range m {
		var err error
		f := keyDataRow + "." + k
		switch k {
		case keyID:
			d.ID, err = asString(f, v)
		case keyGlobalKey:
			d.GlobalKey, err = asString(f, v)
		case keyURL:
			d.URL, err = asString(f, v)
		}
		if err != nil {
			return DataRow{}, err
		}
	}
	return d, nil
}

func metricsFromDict(field string, v any) ([]CustomMetric, error) {
	list, err := asArray(field, v)
	if err != nil {
		return nil, err
	}
	out := make([]CustomMetric, 0, len(list))
	for i, item := range list {
		f := fmt.Sprintf("%s[%d]", field, i)
		obj, err := asObject(f, item)
		if err != nil {
			return nil, err
		}
		name, err := asString(f+".name", obj[keyName])
		if err != nil {
			return nil, err
		}
		value, err := requiredNumber(obj, f, "value")
		if err != nil {
			return nil, err
		}
		out = append(out, CustomMetric{Name: name, Value: value})
	}
	return out, nil
}

func annotationsFromList(field string, v any) ([]Annotation, error) {
	list, err := asArray(field, v)
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, len(list))
	for i, item := range list {
		f := fmt.Sprintf("%s[%d]", field, i)
		obj, err := asObject(f, item)
		if err != nil {
			return nil, err
		}
		a, err := annotationFromDict(f, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func pointFromDict(field string, v any) (Point, error) {
	obj, err := asObject(field, v)
	if err != nil {
		return Point{}, err
	}
	x, err := requiredNumber(obj, field, "x")
	if err != nil {
		return Point{}, err
	}
	y, err := requiredNumber(obj, field, "y")
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

func pointsFromList(field string, v any) ([]Point, error) {
	list, err := asArray(field, v)
	if err != nil {
		return nil, err
	}
	out := make([]Point, 0, len(list))
	for i, item := range list {
		p, err := pointFromDict(fmt.Sprintf("%s[%d]", field, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func requiredNumber(obj map[string]any, field, key string) (float64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, NewDecodeError(field+"."+key, fmt.Errorf("missing"))
	}
	return asNumber(field+"."+key, v)
}

func requiredInt(obj map[string]any, field, key string) (int, error) {
	v, ok := obj[key]
	if !ok {
		return 0, NewDecodeError(field+"."+key, fmt.Errorf("missing"))
	}
	return asInt(field+"."+key, v)
}

func asObject(field string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, typeError(field, "object", v)
	}
	return m, nil
}

func asArray(field string, v any) ([]any, error) {
	l, ok := v.([]any)
	if !ok {
		return nil, typeError(field, "array", v)
	}
	return l, nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeError(field, "string", v)
	}
	return s, nil
}

// asNumber accepts the numeric shapes produced by encoding/json and Go literals.
func asNumber(field string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, NewDecodeError(field, err)
		}
		return f, nil
	}
	return 0, typeError(field, "number", v)
}

func asInt(field string, v any) (int, error) {
	f, err := asNumber(field, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, NewDecodeError(field, fmt.Errorf("expected integer, got %v", f))
	}
	return int(f), nil
}

func typeError(field, want string, got any) *DecodeError {
	return NewDecodeError(field, fmt.Errorf("expected %s, got %T", want, got))
}
