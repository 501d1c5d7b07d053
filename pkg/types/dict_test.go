package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullLabel(t *testing.T) Label {
	t.Helper()
	l, err := BuildLabel(
		DataRow{GlobalKey: "asset-7", URL: "https://example.com/7.png"},
		[]Annotation{
			{
				Schema:        FeatureSchema{Name: "dog", SchemaID: "ckdog"},
				Confidence:    Float(0.9),
				CustomMetrics: []CustomMetric{{Name: "iou", Value: 0.5}},
				Value:         NewPolygon(square(), []Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}}),
				Classifications: []Annotation{
					{Schema: FeatureSchema{Name: "color"}, Value: Radio{Answer: ClassificationAnswer{Schema: FeatureSchema{Name: "brown"}}}},
				},
			},
			{Schema: FeatureSchema{Name: "box"}, Value: Rectangle{Left: 5, Top: 7, Width: 20, Height: 30}},
			{Schema: FeatureSchema{Name: "tip"}, Value: Point{X: 1.5, Y: 2.5}},
			{Schema: FeatureSchema{Name: "edge"}, Value: Line{Points: []Point{{X: 0, Y: 0}, {X: 3, Y: 4}}}},
			{Schema: FeatureSchema{Name: "seg"}, Value: Mask{Raster: [][]int{{0, 1}, {1, 1}}, Value: 1}},
			{Schema: FeatureSchema{Name: "seg-uri"}, Value: Mask{URI: "https://example.com/m.png", Value: 255}},
			{Schema: FeatureSchema{Name: "person"}, Value: TextEntity{Start: 0, End: 4}},
			{Schema: FeatureSchema{Name: "caption"}, Value: Text{Answer: "a dog"}},
			{Schema: FeatureSchema{Name: "tags"}, Extra: map[string]any{"source": "import"}, Value: Checklist{Answers: []ClassificationAnswer{
				{Schema: FeatureSchema{Name: "outdoor"}, Keyframe: Bool(true)},
				{Schema: FeatureSchema{Name: "daytime"}, Confidence: Float(0.2)},
			}}},
		},
		WithUID("label-1"),
		WithExtra(map[string]any{"Project Name": "pets"}),
	)
	require.NoError(t, err)
	return l
}

func TestToDict(t *testing.T) {
	t.Run("scenario shape", func(t *testing.T) {
		l, err := BuildLabel(DataRow{ID: "row-1"}, []Annotation{
			{Schema: FeatureSchema{Name: "box"}, Value: Rectangle{Left: 5, Top: 7, Width: 20, Height: 30}},
			{Schema: FeatureSchema{Name: "caption"}, Value: Text{Answer: "hi"}},
		})
		require.NoError(t, err)

		want := map[string]any{
			"dataRow": map[string]any{"id": "row-1"},
			"annotations": []any{
				map[string]any{"name": "box", "bbox": map[string]any{"top": 7.0, "left": 5.0, "height": 30.0, "width": 20.0}},
				map[string]any{"name": "caption", "answer": "hi"},
			},
		}
		if diff := cmp.Diff(want, ToDict(l)); diff != "" {
			t.Errorf("ToDict mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("canonical keys win over extra", func(t *testing.T) {
		l, err := BuildLabel(DataRow{ID: "row-1"}, nil, WithUID("real"), WithExtra(map[string]any{"uid": "shadow", "other": 1}))
		require.NoError(t, err)
		d := ToDict(l)
		assert.Equal(t, "real", d["uid"])
		assert.Equal(t, 1, d["other"])
	})

	t.Run("reserved extra keys never render", func(t *testing.T) {
		tests := []struct {
			name  string
			label func(t *testing.T) Label
			check func(t *testing.T, got Label)
		}{
			{
				name: "schema id only annotation keeps its schema",
				label: func(t *testing.T) Label {
					l, err := BuildLabel(DataRow{ID: "row-1"}, []Annotation{
						{Schema: FeatureSchema{SchemaID: "s1"}, Value: Point{X: 1, Y: 2}, Extra: map[string]any{"name": "dog", "note": "n"}},
					})
					require.NoError(t, err)
					return l
				},
				check: func(t *testing.T, got Label) {
					assert.Equal(t, FeatureSchema{SchemaID: "s1"}, got.Annotations[0].Schema)
					assert.Equal(t, map[string]any{"note": "n"}, got.Annotations[0].Extra)
				},
			},
			{
				name: "payload key in polygon extra",
				label: func(t *testing.T) Label {
					l, err := BuildLabel(DataRow{ID: "row-1"}, []Annotation{
						{Schema: FeatureSchema{Name: "lake"}, Value: NewPolygon(square()), Extra: map[string]any{"point": map[string]any{"x": 1.0, "y": 1.0}}},
					})
					require.NoError(t, err)
					return l
				},
				check: func(t *testing.T, got Label) {
					assert.IsType(t, Polygon{}, got.Annotations[0].Value)
					assert.Nil(t, got.Annotations[0].Extra)
				},
			},
			{
				name: "label level keys",
				label: func(t *testing.T) Label {
					l, err := BuildLabel(DataRow{ID: "row-1"}, nil, WithExtra(map[string]any{"uid": "x", "isBenchmarkReference": true, "kept": "y"}))
					require.NoError(t, err)
					return l
				},
				check: func(t *testing.T, got Label) {
					assert.Empty(t, got.UID)
					assert.False(t, got.IsBenchmarkReference)
					assert.Equal(t, map[string]any{"kept": "y"}, got.Extra)
				},
			},
			{
				name: "answer keyframe in extra",
				label: func(t *testing.T) Label {
					l, err := BuildLabel(DataRow{ID: "row-1"}, []Annotation{
						{Schema: FeatureSchema{Name: "weather"}, Value: Radio{Answer: ClassificationAnswer{
							Schema: FeatureSchema{Name: "sunny"}, Extra: map[string]any{"keyframe": true},
						}}},
					})
					require.NoError(t, err)
					return l
				},
				check: func(t *testing.T, got Label) {
					radio := got.Annotations[0].Value.(Radio)
					assert.Nil(t, radio.Answer.Keyframe)
					assert.Nil(t, radio.Answer.Extra)
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				data, err := json.Marshal(ToDict(tt.label(t)))
				require.NoError(t, err)
				var m map[string]any
				require.NoError(t, json.Unmarshal(data, &m))

				got, err := FromDict(m)
				require.NoError(t, err)
				tt.check(t, got)
			})
		}
	})

	t.Run("annotation keyframe stays in extra", func(t *testing.T) {
		l, err := FromDict(map[string]any{
			"dataRow":     map[string]any{"id": "row-1"},
			"annotations": []any{map[string]any{"name": "tip", "point": map[string]any{"x": 1.0, "y": 2.0}, "keyframe": true}},
		})
		require.NoError(t, err)
		assert.Equal(t, true, AnnotationToDict(l.Annotations[0])["keyframe"])
	})

	t.Run("benchmark flag omitted when false", func(t *testing.T) {
		l, err := BuildLabel(DataRow{ID: "row-1"}, nil)
		require.NoError(t, err)
		_, ok := ToDict(l)["isBenchmarkReference"]
		assert.False(t, ok)
	})
}

func TestFromDictRoundTrip(t *testing.T) {
	l := fullLabel(t)

	got, err := FromDict(ToDict(l))
	require.NoError(t, err)
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	t.Run("through json", func(t *testing.T) {
		data, err := json.Marshal(l)
		require.NoError(t, err)

		var decoded Label
		require.NoError(t, json.Unmarshal(data, &decoded))
		if diff := cmp.Diff(l, decoded); diff != "" {
			t.Errorf("json round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("large integers in extra", func(t *testing.T) {
		in := `{"annotations":[{"name":"tip","point":{"x":1,"y":2},"track":12345678901234567891}],"dataRow":{"id":"row-1"},"seq":9007199254740993}`
		var decoded Label
		require.NoError(t, json.Unmarshal([]byte(in), &decoded))
		assert.Equal(t, json.Number("9007199254740993"), decoded.Extra["seq"])

		out, err := json.Marshal(decoded)
		require.NoError(t, err)
		assert.JSONEq(t, in, string(out))
		assert.Contains(t, string(out), `"track":12345678901234567891`)
	})
}

func TestFromDictErrors(t *testing.T) {
	tests := []struct {
		name    string
		dict    map[string]any
		wantErr error
	}{
		{
			name:    "missing data row",
			dict:    map[string]any{"annotations": []any{}},
			wantErr: ErrValidation,
		},
		{
			name:    "both identities",
			dict:    map[string]any{"dataRow": map[string]any{"id": "a", "globalKey": "b"}},
			wantErr: ErrValidation,
		},
		{
			name: "two payload keys",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"name": "x", "point": map[string]any{"x": 1.0, "y": 1.0}, "answer": "t"}},
			},
			wantErr: ErrValidation,
		},
		{
			name: "no payload",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"name": "x"}},
			},
			wantErr: ErrValidation,
		},
		{
			name: "no schema",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"answer": "t"}},
			},
			wantErr: ErrValidation,
		},
		{
			name: "wrong point type",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"name": "x", "point": []any{1.0, 2.0}}},
			},
			wantErr: ErrDecode,
		},
		{
			name: "non integer location",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"name": "x", "location": map[string]any{"start": 0.5, "end": 2.0}}},
			},
			wantErr: ErrDecode,
		},
		{
			name: "answer of wrong type",
			dict: map[string]any{
				"dataRow":     map[string]any{"id": "a"},
				"annotations": []any{map[string]any{"name": "x", "answer": 3.0}},
			},
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDict(tt.dict)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFromDictUnknownKeys(t *testing.T) {
	l, err := FromDict(map[string]any{
		"dataRow": map[string]any{"id": "a"},
		"annotations": []any{
			map[string]any{"name": "x", "answer": "t", "color": "red"},
		},
		"reviewer": "sam",
	})
	require.NoError(t, err)
	assert.Equal(t, "sam", l.Extra["reviewer"])
	assert.Equal(t, "red", l.Annotations[0].Extra["color"])
	assert.Equal(t, Text{Answer: "t"}, l.Annotations[0].Value)
}
