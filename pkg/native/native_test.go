package native

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/labelkit/pkg/types"
)

func mustRecord(t *testing.T, s string) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(s), &rec))
	return rec
}

func TestRecordJSON(t *testing.T) {
	rec := mustRecord(t, `{
		"ID": "lbl-1",
		"DataRow ID": "row-1",
		"Labeled Data": "https://example.com/1.jpg",
		"Label": {"cat": "POLYGON ((0 0, 10 0, 10 10, 0 0))"},
		"Project Name": "pets",
		"Created By": "sam@example.com",
		"Benchmark": 1,
		"Seconds to Label": 3.5
	}`)

	assert.Equal(t, "lbl-1", rec.ID)
	assert.Equal(t, "row-1", rec.DataRowID)
	assert.Equal(t, "https://example.com/1.jpg", rec.LabeledData)
	assert.True(t, rec.IsBenchmarkReference)
	assert.Equal(t, "pets", rec.ProjectName())
	assert.Equal(t, "sam@example.com", rec.CreatedBy())
	assert.Equal(t, 3.5, rec.Extra["Seconds to Label"])

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	again := mustRecord(t, string(data))
	assert.Equal(t, rec.Extra, again.Extra)
	assert.JSONEq(t, string(rec.Label), string(again.Label))
}

func TestRecords(t *testing.T) {
	t.Run("streams array", func(t *testing.T) {
		input := `[{"ID": "a", "Label": "Skip"}, {"ID": "b", "Label": {}}]`
		var ids []string
		for rec, err := range Records(strings.NewReader(input)) {
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}
		assert.Equal(t, []string{"a", "b"}, ids)
	})

	t.Run("not an array", func(t *testing.T) {
		for _, err := range Records(strings.NewReader(`{"ID": "a"}`)) {
			assert.ErrorIs(t, err, types.ErrDecode)
		}
	})

	t.Run("malformed element stops iteration", func(t *testing.T) {
		var n int
		var last error
		for _, err := range Records(strings.NewReader(`[{"ID": "a"}, {"ID": 7}, {"ID": "c"}]`)) {
			n++
			last = err
		}
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, last, types.ErrDecode)
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("wkt")
	require.NoError(t, err)
	assert.Equal(t, FormatWKT, f)

	_, err = ParseFormat("GeoJSON")
	assert.ErrorIs(t, err, types.ErrUnknownFormat)
}

func TestDecodeWKT(t *testing.T) {
	t.Run("string payload", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "DataRow ID": "r", "Label": {"cat": "POLYGON ((0 0, 10 0, 10 10, 0 0))"}}`)
		l, err := Decode(rec, FormatWKT)
		require.NoError(t, err)
		require.Len(t, l.Annotations, 1)
		assert.Equal(t, "cat", l.Annotations[0].Schema.Name)
		assert.Equal(t, types.KindPolygon, l.Annotations[0].Kind())
		assert.Equal(t, types.DataRow{ID: "r"}, l.DataRow)
	})

	t.Run("classes keep document order", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "Label": {
			"zebra": "POLYGON ((0 0, 1 0, 1 1, 0 0))",
			"ant": [{"geometry": "POLYGON ((0 0, 2 0, 2 2, 0 0))"}, {"geometry": "POLYGON ((5 5, 6 5, 6 6, 5 5))"}],
			"mood": "happy"
		}}`)
		l, err := Decode(rec, FormatWKT)
		require.NoError(t, err)
		var names []string
		for _, a := range l.Annotations {
			names = append(names, a.Schema.Name)
		}
		assert.Equal(t, []string{"zebra", "ant", "ant"}, names)
		assert.Equal(t, types.DataRow{ID: "l"}, l.DataRow, "falls back to the label id")
	})

	t.Run("v3 objects carry schema ids and bbox", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "Global Key": "gk", "Label": {"car": [
			{"geometry": "POLYGON ((0 0, 4 0, 4 4, 0 0))", "schemaId": "ckcar", "color": "red"},
			{"bbox": {"top": 7, "left": 5, "width": 20, "height": 30}, "schemaId": "ckcar"}
		]}}`)
		l, err := Decode(rec, FormatWKT)
		require.NoError(t, err)
		require.Len(t, l.Annotations, 2)
		assert.Equal(t, types.FeatureSchema{Name: "car", SchemaID: "ckcar"}, l.Annotations[0].Schema)
		assert.Equal(t, "red", l.Annotations[0].Extra["color"])
		assert.Equal(t, types.Rectangle{Left: 5, Top: 7, Width: 20, Height: 30}, l.Annotations[1].Value)
		assert.Equal(t, types.DataRow{GlobalKey: "gk"}, l.DataRow)
	})

	t.Run("non string geometry rejected", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "Label": {"car": [{"geometry": [{"x": 1, "y": 1}]}]}}`)
		_, err := Decode(rec, FormatWKT)
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("skip label", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "DataRow ID": "r", "Label": "Skip"}`)
		l, err := Decode(rec, FormatWKT)
		require.NoError(t, err)
		assert.True(t, l.IsSkip())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := Decode(Record{ID: "l"}, Format("SVG"))
		assert.ErrorIs(t, err, types.ErrUnknownFormat)
	})
}

func TestDecodeXY(t *testing.T) {
	t.Run("bare and wrapped point lists", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "DataRow ID": "r", "Label": {"dog": [
			[{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 10, "y": 10}],
			{"geometry": [{"x": 1, "y": 1}, {"x": 2, "y": 1}, {"x": 2, "y": 2}], "schemaId": "ckdog"},
			"Skip",
			[1, 2, 3]
		]}}`)
		l, err := Decode(rec, FormatXY)
		require.NoError(t, err)
		require.Len(t, l.Annotations, 2)

		poly := l.Annotations[0].Value.(types.Polygon)
		assert.Len(t, poly.Exterior, 4, "ring is closed")
		assert.Equal(t, "ckdog", l.Annotations[1].Schema.SchemaID)
	})

	t.Run("non list geometry rejected", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "Label": {"dog": [{"geometry": "POLYGON ((0 0, 1 0, 1 1, 0 0))"}]}}`)
		_, err := Decode(rec, FormatXY)
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("degenerate polygon rejected", func(t *testing.T) {
		rec := mustRecord(t, `{"ID": "l", "Label": {"dog": [[{"x": 0, "y": 0}, {"x": 1, "y": 1}]]}}`)
		_, err := Decode(rec, FormatXY)
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	l, err := types.BuildLabel(
		types.DataRow{ID: "row-1", URL: "https://example.com/1.jpg"},
		[]types.Annotation{
			{Schema: types.FeatureSchema{Name: "cat", SchemaID: "ckcat"}, Value: types.NewPolygon([]types.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})},
			{Schema: types.FeatureSchema{Name: "box"}, Confidence: types.Float(0.5), Value: types.Rectangle{Left: 1, Top: 2, Width: 3, Height: 4}},
			{Schema: types.FeatureSchema{Name: "tags"}, Extra: map[string]any{"note": "x"}, Value: types.Checklist{Answers: []types.ClassificationAnswer{
				{Schema: types.FeatureSchema{Name: "indoor"}},
			}}},
		},
		types.WithUID("lbl-1"),
		types.WithExtra(map[string]any{"Project Name": "pets"}),
	)
	require.NoError(t, err)

	rec, err := Encode(l)
	require.NoError(t, err)
	assert.Equal(t, "pets", rec.ProjectName())

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, []Record{rec}))

	var decoded []types.Label
	for r, err := range Records(&buf) {
		require.NoError(t, err)
		got, err := Decode(r, FormatObjects)
		require.NoError(t, err)
		decoded = append(decoded, got)
	}
	require.Len(t, decoded, 1)
	if diff := cmp.Diff(l, decoded[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
