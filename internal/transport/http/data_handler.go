package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ejiview/internal/config"
	apierrors "ejiview/internal/errors"
	"ejiview/internal/exporter"
	"ejiview/internal/infrastructure"
	"ejiview/internal/middleware"
	"ejiview/internal/repository"
	"ejiview/internal/schema"
	"ejiview/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CompareRequest is the body of POST /api/compare and the query of
// GET /api/compare
type CompareRequest struct {
	A       string `json:"a" validate:"required,max=200"`
	ASource string `json:"a_source" validate:"required,max=100"`
	B       string `json:"b" validate:"required,max=200"`
	BSource string `json:"b_source" validate:"required,max=100"`
	Match   string `json:"match,omitempty" validate:"matchmode"`
}

func (c CompareRequest) toService() services.CompareRequest {
	mode, _ := repository.ParseMatchMode(c.Match)
	return services.CompareRequest{
		A:       strings.TrimSpace(c.A),
		ASource: c.ASource,
		B:       strings.TrimSpace(c.B),
		BSource: c.BSource,
		Mode:    mode,
	}
}

// DataHandler serves the reference data, source, entity and comparison
// endpoints
type DataHandler struct {
	service      DataServiceInterface
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the read-only data routes on their own router
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the read-only data routes to r. POST /reload is
// mounted separately so it can carry its own auth.
func (h *DataHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/catalog", h.GetCatalog)
		r.Get("/scale", h.GetScale)

		r.Get("/sources", h.GetSources)
		r.Route("/sources/{source}", func(r chi.Router) {
			r.Use(h.SourceCtx)
			r.Get("/table", h.GetTable)
			r.Get("/entities", h.GetEntities)
			r.Get("/entities/{key}", h.GetEntity)
		})

		r.Get("/compare", h.GetCompare)
		r.With(middleware.ContentTypeValidator("application/json"), h.validation.ValidateRequest).
			Post("/compare", h.PostCompare)
		r.Get("/compare/export", h.ExportCompare)
	})
}

// SourceCtx rejects blank or oversized source names before the handler runs
func (h *DataHandler) SourceCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := strings.TrimSpace(chi.URLParam(r, "source"))
		if source == "" || len(source) > 100 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("source", "Invalid source name"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetCatalog handles GET /api/catalog
func (h *DataHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.Catalog(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   catalog,
	})
}

// GetScale handles GET /api/scale
func (h *DataHandler) GetScale(w http.ResponseWriter, r *http.Request) {
	bands := h.service.Scale()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   bands,
		"count":  len(bands),
	})
}

// GetSources handles GET /api/sources
func (h *DataHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.Sources(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list sources", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   sources,
		"count":  len(sources),
	})
}

// GetTable handles GET /api/sources/{source}/table
func (h *DataHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	table, err := h.service.Table(r.Context(), source)
	if err != nil {
		h.fail(w, r, "failed to get table", err, slog.String("source", source))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.Rows),
	})
}

// GetEntities handles GET /api/sources/{source}/entities[?all=true]
func (h *DataHandler) GetEntities(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	all, ok := h.query.ValidateBool(w, r, "all", false)
	if !ok {
		return
	}

	keys, err := h.service.Keys(r.Context(), source, all)
	if err != nil {
		h.fail(w, r, "failed to list entities", err, slog.String("source", source))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   keys,
		"count":  len(keys),
	})
}

// GetEntity handles GET /api/sources/{source}/entities/{key}[?match=normalized]
func (h *DataHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	key := chi.URLParam(r, "key")
	mode, ok := h.query.ValidateMatchMode(w, r)
	if !ok {
		return
	}

	view, err := h.service.Entity(r.Context(), source, key, mode)
	if err != nil {
		h.fail(w, r, "failed to get entity", err,
			slog.String("source", source),
			slog.String("key", key),
		)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   view,
	})
}

// GetCompare handles GET /api/compare?a=&a_source=&b=&b_source=[&match=]
func (h *DataHandler) GetCompare(w http.ResponseWriter, r *http.Request) {
	req, ok := h.compareFromQuery(w, r)
	if !ok {
		return
	}
	h.compare(w, r, req)
}

// PostCompare handles POST /api/compare
func (h *DataHandler) PostCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.compare(w, r, req)
}

func (h *DataHandler) compare(w http.ResponseWriter, r *http.Request, req CompareRequest) {
	rec, err := h.service.Compare(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "comparison failed", err,
			slog.String("a", req.A),
			slog.String("b", req.B),
		)
		return
	}
	infrastructure.SetSpanAttributes(r.Context(), map[string]interface{}{
		"eji.entity_a": rec.EntityA.Key,
		"eji.entity_b": rec.EntityB.Key,
		"eji.metrics":  len(rec.Metrics),
	})
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rec,
	})
}

// ExportCompare handles GET /api/compare/export?...&format=csv|xlsx
func (h *DataHandler) ExportCompare(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", []string{"csv", "xlsx"}, "csv")
	if !ok {
		return
	}
	req, ok := h.compareFromQuery(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Compare(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "comparison export failed", err)
		return
	}

	// Encode fully before the first byte so failures still get a problem response
	var buf bytes.Buffer
	contentType := contentTypeCSV
	if format == "xlsx" {
		contentType = contentTypeXLSX
		err = exporter.WriteComparisonXLSX(&buf, rec)
	} else {
		err = exporter.WriteComparisonCSV(&buf, rec)
	}
	if err != nil {
		h.fail(w, r, "failed to encode export", err, slog.String("format", format))
		return
	}

	filename := config.ExportFileName(rec.EntityA.Key, rec.EntityB.Key, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "comparison exported",
		slog.String("format", format),
		slog.String("filename", filename),
		slog.Int("bytes", buf.Len()),
	)
}

// Reload handles POST /api/reload
func (h *DataHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "reload requested",
		slog.String("client", middleware.APIClient(r.Context())),
		slog.String("request_id", infrastructure.GetTraceID(r.Context())),
	)

	result, err := h.service.Reload(r.Context())
	if err != nil {
		h.fail(w, r, "reload failed", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

func (h *DataHandler) compareFromQuery(w http.ResponseWriter, r *http.Request) (CompareRequest, bool) {
	q := r.URL.Query()
	req := CompareRequest{
		A:       q.Get("a"),
		ASource: q.Get("a_source"),
		B:       q.Get("b"),
		BSource: q.Get("b_source"),
		Match:   q.Get("match"),
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return CompareRequest{}, false
	}
	return req, true
}

// fail logs err and answers with the API error it maps to
func (h *DataHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	attrs = append(attrs,
		slog.String("error", err.Error()),
		slog.String("request_id", infrastructure.GetTraceID(r.Context())),
	)
	h.logger.WarnContext(r.Context(), msg, attrs...)
	h.errorHandler.HandleError(w, r, mapServiceError(err, r))
}

// mapServiceError translates service sentinels into API errors. Schema and
// application errors pass through for the error handler to map.
func mapServiceError(err error, r *http.Request) error {
	source := chi.URLParam(r, "source")
	key := chi.URLParam(r, "key")

	var normErr *schema.NormalizationError
	var appErr *apierrors.AppError
	switch {
	case errors.Is(err, services.ErrNoSources):
		return apierrors.ErrNoData
	case errors.Is(err, services.ErrSourceNotFound):
		if source == "" {
			return apierrors.ErrSourceNotFound.WithDetails(err.Error())
		}
		return apierrors.SourceNotFoundError(source)
	case errors.Is(err, services.ErrEntityNotFound):
		if key == "" {
			return apierrors.ErrEntityNotFound.WithDetails(err.Error())
		}
		return apierrors.EntityNotFoundError(source, key)
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.ErrInvalidParameter.WithDetails(err.Error())
	case errors.Is(err, services.ErrReloadInProgress):
		return apierrors.New(http.StatusConflict, "RELOAD_IN_PROGRESS", "A reload is already running")
	case errors.As(err, &normErr), errors.As(err, &appErr):
		return err
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/reload"):
		return apierrors.ReloadError(err)
	default:
		return err
	}
}
