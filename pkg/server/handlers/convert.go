package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/labelkit"
	"github.com/soundprediction/labelkit/pkg/server/dto"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/vectorize"
)

// ConvertHandler serves the conversion endpoints.
type ConvertHandler struct {
	client *labelkit.Client
}

// NewConvertHandler creates a new conversion handler
func NewConvertHandler(client *labelkit.Client) *ConvertHandler {
	return &ConvertHandler{client: client}
}

// writeError maps an error kind to a status code and error body.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, dto.ErrCodeInternal
	switch {
	case errors.Is(err, types.ErrUnknownFormat):
		status, code = http.StatusBadRequest, dto.ErrCodeUnknownFormat
	case errors.Is(err, types.ErrValidation):
		status, code = http.StatusBadRequest, dto.ErrCodeValidation
	case errors.Is(err, types.ErrDecode):
		status, code = http.StatusBadRequest, dto.ErrCodeDecode
	}
	c.JSON(status, dto.ErrorResponse{Error: code, Message: err.Error(), Code: status})
}

// COCO handles POST /api/v1/convert/coco?format=WKT. The body is a JSON
// array of export records.
func (h *ConvertHandler) COCO(c *gin.Context) {
	format, err := h.client.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	doc, err := h.client.ExportCOCO(c.Request.Context(), c.Request.Body, format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ValidateNDJSON handles POST /api/v1/ndjson/validate. Every line of the body
// must decode to a valid Label.
func (h *ConvertHandler) ValidateNDJSON(c *gin.Context) {
	labels, err := labelkit.ReadLabels(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ValidateResponse{Valid: true, Records: len(labels)})
}

// UploadRows handles POST /api/v1/ndjson/rows, answering with one NDJSON
// import row per annotation of the Labels in the body.
func (h *ConvertHandler) UploadRows(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.client.WriteUploadRows(c.Request.Body, &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/x-ndjson", buf.Bytes())
}

// Vectorize handles POST /api/v1/vectorize, answering with the Label dict.
func (h *ConvertHandler) Vectorize(c *gin.Context) {
	var req dto.VectorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrCodeInvalidRequest, Message: err.Error(), Code: http.StatusBadRequest})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrCodeInvalidRequest, Message: err.Error(), Code: http.StatusBadRequest})
		return
	}
	legend, _ := req.ParsedLegend()

	opts := h.client.VectorizeOptions()
	if req.MaxPoints != nil || req.Epsilon != nil {
		opts = vectorize.Options{MaxPoints: req.MaxPoints, Epsilon: req.Epsilon}
	}
	dr := types.DataRow{ID: req.DataRow.ID, GlobalKey: req.DataRow.GlobalKey, URL: req.DataRow.URL}

	label, err := h.client.VectorizeLabel(dr, req.Mask, legend, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ToDict(label))
}
