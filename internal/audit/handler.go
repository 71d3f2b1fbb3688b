package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/backstage-events/backstage/internal/auth"
	"github.com/backstage-events/backstage/internal/authz"
	"github.com/backstage-events/backstage/internal/platform/httpx"
)

// Handler exposes the audit timeline to administrators.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	verifier auth.TokenVerifier
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, verifier auth.TokenVerifier) *Handler {
	return &Handler{logger: logger, service: service, verifier: verifier}
}

// MountRoutes registers the timeline route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		httpx.RespondError(w, httpx.ErrMissingToken)
		return
	}
	principal, err := h.verifier.Verify(token)
	if err != nil {
		httpx.RespondError(w, httpx.ErrInvalidToken)
		return
	}
	if !authz.ParsePositions(principal.Position).Has(authz.CapAdmin) {
		httpx.RespondError(w, httpx.ErrPermissionDenied)
		return
	}

	query := r.URL.Query()
	filters := TimelineFilters{
		Collection: query.Get("collection"),
		Actor:      query.Get("actor"),
		Action:     query.Get("action"),
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filters.Page = page
	}
	if pageSize, err := strconv.Atoi(query.Get("pageSize")); err == nil {
		filters.PageSize = pageSize
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("audit timeline", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
