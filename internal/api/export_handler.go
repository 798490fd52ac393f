package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/quizwise/backend/internal/catalog"
)

// maxImportBytes bounds catalog uploads.
const maxImportBytes = 10 << 20

func requestFormat(r *http.Request) catalog.Format {
	if f := r.URL.Query().Get("format"); f != "" {
		return catalog.Format(strings.ToLower(f))
	}
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "yaml") {
		return catalog.FormatYAML
	}
	return catalog.FormatJSON
}

// exportCatalog downloads the whole catalog.
// @Summary      Export the catalog
// @Tags         Catalog
// @Produce      json
// @Produce      application/x-yaml
// @Param        format  query     string  false  "json (default) or yaml"
// @Success      200     {object}  catalog.Document
// @Failure      400     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /catalog/export [get]
func (h *Handler) exportCatalog(w http.ResponseWriter, r *http.Request) {
	format := requestFormat(r)
	if format != catalog.FormatJSON && format != catalog.FormatYAML {
		respondError(w, http.StatusBadRequest, "format must be json or yaml")
		return
	}

	doc, err := catalog.Export(r.Context(), h.catalog, time.Now())
	if h.handleError(w, err, "catalog") {
		return
	}

	contentType := "application/json"
	if format == catalog.FormatYAML {
		contentType = "application/x-yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=quizwise-catalog."+string(format))
	if err := catalog.Encode(w, doc, format); err != nil {
		h.logger.Error("failed to encode catalog", "error", err)
	}
}

// importCatalog loads areas, units and questions from a catalog document.
// @Summary      Import a catalog
// @Description  Accepts the export document as JSON or YAML (Content-Type application/x-yaml).
// @Tags         Catalog
// @Accept       json
// @Accept       application/x-yaml
// @Produce      json
// @Param        body  body      catalog.Document  true  "Catalog document"
// @Success      201   {object}  catalog.ImportResult
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /catalog/import [post]
func (h *Handler) importCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	doc, err := catalog.Decode(r.Body, requestFormat(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := catalog.Import(r.Context(), h.catalog, doc, h.logger)
	if h.handleError(w, err, "catalog entry") {
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
