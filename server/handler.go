package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/payreport/core"
	"github.com/gaurav-prasanna/payreport/core/output"
	"github.com/gaurav-prasanna/payreport/core/render"
	"github.com/gaurav-prasanna/payreport/core/report"
	"github.com/rs/zerolog"
)

// Generator produces rendered reports. *assemble.Assembler satisfies it.
type Generator interface {
	Render(ctx context.Context, d *report.Data, r core.Renderer) ([]byte, *core.Document, error)
	RenderPDF(ctx context.Context, d *report.Data) ([]byte, *core.Document, error)
}

// Handler serves the report API.
type Handler struct {
	generator     Generator
	normalizer    core.Normalizer
	defaultFormat string
	maxBody       int64
}

// NewHandler creates a Handler.
func NewHandler(g Generator, n core.Normalizer, defaultFormat string, maxBody int64) *Handler {
	return &Handler{generator: g, normalizer: n, defaultFormat: defaultFormat, maxBody: maxBody}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateReport paginates the report data in the request body and responds
// with the document in the requested format.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = h.defaultFormat
	}
	renderer, err := render.ForFormat(format, h.normalizer)
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	data, err := report.Decode(body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(ctx, w, status, errorResponse{Error: err.Error()})
		return
	}

	var (
		out []byte
		doc *core.Document
	)
	if strings.EqualFold(format, "pdf") {
		out, doc, err = h.generator.RenderPDF(ctx, data)
	} else {
		out, doc, err = h.generator.Render(ctx, data, renderer)
	}
	if err != nil {
		logger.Error().Err(err).Str("employer", data.Employer.Name).Msg("failed to generate report")
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "report generation failed"})
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+output.Filename(data)+renderer.Extension()+`"`)
	w.Header().Set("X-Document-ID", doc.ID)
	w.Header().Set("X-Page-Count", strconv.Itoa(len(doc.Pages)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}
