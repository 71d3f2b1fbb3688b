package dashboard

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/backstage-events/backstage/internal/auth"
	"github.com/backstage-events/backstage/internal/platform/httpx"
)

// Handler exposes the dashboard endpoint to authenticated callers.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	verifier auth.TokenVerifier
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, verifier auth.TokenVerifier) *Handler {
	return &Handler{logger: logger, service: service, verifier: verifier}
}

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		httpx.RespondError(w, httpx.ErrMissingToken)
		return
	}
	if _, err := h.verifier.Verify(token); err != nil {
		httpx.RespondError(w, httpx.ErrInvalidToken)
		return
	}

	summary, err := h.service.Summary(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("dashboard summary", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
