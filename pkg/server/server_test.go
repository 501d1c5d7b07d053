package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/labelkit"
	"github.com/soundprediction/labelkit/pkg/config"
	"github.com/soundprediction/labelkit/pkg/imagery"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.Mode = "test"

	fetcher := imagery.FetcherFunc(func(ctx context.Context, url string) (*imagery.Image, error) {
		return &imagery.Image{URL: url, Width: 64, Height: 48, Depth: 3}, nil
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(cfg, labelkit.NewClient(cfg, fetcher, logger))
	s.Setup()
	return s
}

func do(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestSetup(t *testing.T) {
	s := newTestServer(t)

	require.NotNil(t, s.router)
	require.NotNil(t, s.server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/live", "/health/detailed"} {
		t.Run(path, func(t *testing.T) {
			w := do(s, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusOK, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "labelkit", body["service"])
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodOptions, "/api/v1/vectorize", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Job-ID")
}

func TestJobIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/health", "", map[string]string{"X-Job-ID": "job-42"})
	assert.Equal(t, "job-42", w.Header().Get("X-Job-ID"))

	w = do(s, http.MethodGet, "/health", "", nil)
	assert.Len(t, w.Header().Get("X-Job-ID"), 36)
}

func TestConvertRoutes(t *testing.T) {
	s := newTestServer(t)
	records := `[{"ID": "l1", "Global Key": "gk", "Labeled Data": "https://img/a.png",
		"Label": {"objects": [{"value": "cat", "bbox": {"top": 8, "left": 4, "height": 10, "width": 20}}]}}]`

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name:   "coco objects",
			path:   "/api/v1/convert/coco?format=objects",
			body:   `[{"ID": "l1", "Global Key": "gk", "Labeled Data": "https://img/a.png", "Label": {"annotations": [{"name": "cat", "bbox": {"top": 8, "left": 4, "height": 10, "width": 20}}]}}]`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var doc map[string]any
				require.NoError(t, json.Unmarshal(body, &doc))
				images := doc["images"].([]any)
				require.Len(t, images, 1)
				assert.Equal(t, "l1", images[0].(map[string]any)["id"])
				anns := doc["annotations"].([]any)
				require.Len(t, anns, 1)
				assert.Equal(t, []any{4.0, 30.0, 20.0, 10.0}, anns[0].(map[string]any)["bbox"])
			},
		},
		{
			name:   "coco unknown format",
			path:   "/api/v1/convert/coco?format=shapefile",
			body:   records,
			status: http.StatusBadRequest,
		},
		{
			name:   "ndjson validate",
			path:   "/api/v1/ndjson/validate",
			body:   `{"dataRow":{"globalKey":"gk"},"annotations":[{"name":"dog","bbox":{"top":1,"left":2,"height":3,"width":4}}]}` + "\n",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"valid": true, "records": 1}`, string(body))
			},
		},
		{
			name:   "ndjson rows",
			path:   "/api/v1/ndjson/rows",
			body:   `{"dataRow":{"globalKey":"gk"},"annotations":[{"name":"dog","uuid":"u-1","bbox":{"top":1,"left":2,"height":3,"width":4}}]}`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"name":"dog","uuid":"u-1","dataRow":{"globalKey":"gk"},"bbox":{"top":1,"left":2,"height":3,"width":4}}`, string(body))
			},
		},
		{
			name:   "vectorize",
			path:   "/api/v1/vectorize",
			body:   `{"data_row": {"id": "dr"}, "mask": [[3,3],[3,3]], "legend": {"3": "lake"}}`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var label map[string]any
				require.NoError(t, json.Unmarshal(body, &label))
				anns := label["annotations"].([]any)
				require.Len(t, anns, 1)
				assert.Equal(t, "lake", anns[0].(map[string]any)["name"])
			},
		},
		{
			name:   "vectorize bad request",
			path:   "/api/v1/vectorize",
			body:   `{"data_row": {}, "mask": [[1]], "legend": {"1": "x"}}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, tt.path, tt.body, map[string]string{"Content-Type": "application/json"})
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, w.Body.Bytes())
			}
		})
	}
}
