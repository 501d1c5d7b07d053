package types

// Dict keys of the canonical rendering.
const (
	keyUID             = "uid"
	keyDataRow         = "dataRow"
	keyID              = "id"
	keyGlobalKey       = "globalKey"
	keyURL             = "url"
	keyAnnotations     = "annotations"
	keyBenchmark       = "isBenchmarkReference"
	keyName            = "name"
	keySchemaID        = "schemaId"
	keyConfidence      = "confidence"
	keyCustomMetrics   = "customMetrics"
	keyClassifications = "classifications"
	keyKeyframe        = "keyframe"
	keyPoint           = "point"
	keyLine            = "line"
	keyPolygon         = "polygon"
	keyHoles           = "holes"
	keyBBox            = "bbox"
	keyMask            = "mask"
	keyLocation        = "location"
	keyAnswer          = "answer"
)

// payloadKeys are the mutually exclusive keys that select an annotation variant.
var payloadKeys = []string{keyPoint, keyLine, keyPolygon, keyBBox, keyMask, keyLocation, keyAnswer}

// Keys the decoder interprets at each level. Extra never renders under them,
// whether or not the current value emits the key.
var (
	labelKeys      = keySet(keyUID, keyDataRow, keyAnnotations, keyBenchmark)
	annotationKeys = keySet(append([]string{keyName, keySchemaID, keyConfidence, keyCustomMetrics, keyClassifications, keyHoles}, payloadKeys...)...)
	answerKeys     = keySet(keyName, keySchemaID, keyConfidence, keyKeyframe, keyClassifications)
)

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// ToDict renders a label as a JSON-shaped map. Absent optionals are dropped and
// Extra is merged underneath the canonical keys. Extra entries named like a
// canonical key are dropped.
func ToDict(l Label) map[string]any {
	out := map[string]any{
		keyDataRow: dataRowDict(l.DataRow),
	}
	if l.UID != "" {
		out[keyUID] = l.UID
	}
	anns := make([]any, len(l.Annotations))
	for i, a := range l.Annotations {
		anns[i] = AnnotationToDict(a)
	}
	out[keyAnnotations] = anns
	if l.IsBenchmarkReference {
		out[keyBenchmark] = true
	}
	return mergeExtra(out, l.Extra, labelKeys)
}

// AnnotationToDict renders one annotation with its variant payload flattened
// into the annotation object.
func AnnotationToDict(a Annotation) map[string]any {
	out := schemaDict(a.Schema)
	if a.Confidence != nil {
		out[keyConfidence] = *a.Confidence
	}
	if len(a.CustomMetrics) > 0 {
		metrics := make([]any, len(a.CustomMetrics))
		for i, m := range a.CustomMetrics {
			metrics[i] = map[string]any{keyName: m.Name, "value": m.Value}
		}
		out[keyCustomMetrics] = metrics
	}
	if nested := classificationsDict(a.Classifications); nested != nil {
		out[keyClassifications] = nested
	}

	switch v := a.Value.(type) {
	case Point:
		out[keyPoint] = pointDict(v)
	case Line:
		out[keyLine] = pointsDict(v.Points)
	case Polygon:
		out[keyPolygon] = pointsDict(v.Exterior)
		if len(v.Holes) > 0 {
			holes := make([]any, len(v.Holes))
			for i, h := range v.Holes {
				holes[i] = pointsDict(h)
			}
			out[keyHoles] = holes
		}
	case Rectangle:
		out[keyBBox] = map[string]any{
			"top":    v.Top,
			"left":   v.Left,
			"height": v.Height,
			"width":  v.Width,
		}
	case Mask:
		mask := map[string]any{"value": float64(v.Value)}
		if v.URI != "" {
			mask["instanceURI"] = v.URI
		} else {
			rows := make([]any, len(v.Raster))
			for i, row := range v.Raster {
				cells := make([]any, len(row))
				for j, c := range row {
					cells[j] = float64(c)
				}
				rows[i] = cells
			}
			mask["raster"] = rows
		}
		out[keyMask] = mask
	case TextEntity:
		out[keyLocation] = map[string]any{"start": float64(v.Start), "end": float64(v.End)}
	case Radio:
		out[keyAnswer] = answerDict(v.Answer)
	case Checklist:
		answers := make([]any, len(v.Answers))
		for i, ans := range v.Answers {
			answers[i] = answerDict(ans)
		}
		out[keyAnswer] = answers
	case Text:
		out[keyAnswer] = v.Answer
	}
	return mergeExtra(out, a.Extra, annotationKeys)
}

func answerDict(a ClassificationAnswer) map[string]any {
	out := schemaDict(a.Schema)
	if a.Confidence != nil {
		out[keyConfidence] = *a.Confidence
	}
	if a.Keyframe != nil {
		out[keyKeyframe] = *a.Keyframe
	}
	if nested := classificationsDict(a.Classifications); nested != nil {
		out[keyClassifications] = nested
	}
	return mergeExtra(out, a.Extra, answerKeys)
}

func classificationsDict(anns []Annotation) []any {
	if len(anns) == 0 {
		return nil
	}
	out := make([]any, len(anns))
	for i, c := range anns {
		out[i] = AnnotationToDict(c)
	}
	return out
}

func schemaDict(s FeatureSchema) map[string]any {
	out := make(map[string]any)
	if s.Name != "" {
		out[keyName] = s.Name
	}
	if s.SchemaID != "" {
		out[keySchemaID] = s.SchemaID
	}
	return out
}

func dataRowDict(d DataRow) map[string]any {
	out := make(map[string]any)
	if d.ID != "" {
		out[keyID] = d.ID
	}
	if d.GlobalKey != "" {
		out[keyGlobalKey] = d.GlobalKey
	}
	if d.URL != "" {
		out[keyURL] = d.URL
	}
	return out
}

func pointDict(p Point) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func pointsDict(pts []Point) []any {
	out := make([]any, len(pts))
	for i, p := range pts {
		out[i] = pointDict(p)
	}
	return out
}

// mergeExtra copies extra underneath canonical, skipping reserved keys;
// canonical keys win on collision.
func mergeExtra(canonical, extra map[string]any, reserved map[string]struct{}) map[string]any {
	if len(extra) == 0 {
		return canonical
	}
	out := make(map[string]any, len(canonical)+len(extra))
	for k, v := range extra {
		if _, ok := reserved[k]; ok {
			continue
		}
		out[k] = v
	}
	for k, v := range canonical {
		out[k] = v
	}
	return out
}
