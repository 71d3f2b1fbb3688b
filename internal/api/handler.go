// Package api implements the generic CRUD dispatcher: one parameterized
// handler translating verb plus path into a document-store operation.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/backstage-events/backstage/internal/auth"
	"github.com/backstage-events/backstage/internal/authz"
	"github.com/backstage-events/backstage/internal/document"
	"github.com/backstage-events/backstage/internal/inventory"
	"github.com/backstage-events/backstage/internal/platform/httpx"
	"github.com/backstage-events/backstage/internal/registry"
	"github.com/backstage-events/backstage/internal/shared"
)

// StorePort abstracts the document store for the dispatcher.
type StorePort interface {
	List(ctx context.Context, kind registry.Kind) ([]document.Document, error)
	Get(ctx context.Context, kind registry.Kind, id string) (document.Document, error)
	Create(ctx context.Context, kind registry.Kind, fields document.Document) (document.Document, error)
	Patch(ctx context.Context, kind registry.Kind, id string, patch document.Document) (document.Document, error)
	Delete(ctx context.Context, kind registry.Kind, id string) error
}

// ReservationPort routes event-material writes through the stock reservation
// transaction.
type ReservationPort interface {
	Reserve(ctx context.Context, body document.Document) (document.Document, error)
	Release(ctx context.Context, lineItemID string) error
}

// AuditPort records successful writes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// QREnqueuer schedules background QR rendering for a new event UTM.
type QREnqueuer interface {
	EnqueueUTMQRRender(ctx context.Context, utmID string) error
}

// Handler is the CRUD dispatcher.
type Handler struct {
	logger       *slog.Logger
	store        StorePort
	verifier     auth.TokenVerifier
	reservations ReservationPort
	audit        AuditPort
	qr           QREnqueuer
}

// NewHandler builds a Handler. Reservations, audit and qr may be nil.
func NewHandler(logger *slog.Logger, store StorePort, verifier auth.TokenVerifier, reservations ReservationPort, audit AuditPort, qr QREnqueuer) *Handler {
	return &Handler{logger: logger, store: store, verifier: verifier, reservations: reservations, audit: audit, qr: qr}
}

// MountRoutes registers the collection routes. The first path segment selects
// the collection, the optional second one the document identifier.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{collection}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/", h.missingID)
		r.Delete("/", h.missingID)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.remove)
		})
	})
}

// MethodNotAllowed is the router-wide fallback for verbs chi cannot match.
// Unknown collections stay a 400 on every verb; known paths report 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	segment := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]
	if segment != "auth" {
		if _, ok := registry.Resolve(segment); !ok {
			httpx.RespondError(w, httpx.ErrInvalidCollection)
			return
		}
	}
	httpx.RespondError(w, httpx.ErrMethodNotAllowed)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (registry.Kind, bool) {
	segment := chi.URLParam(r, "collection")
	kind, ok := registry.Resolve(segment)
	if !ok {
		httpx.RespondError(w, httpx.ErrInvalidCollection)
	}
	return kind, ok
}

// missingID answers writes addressed to a bare collection path. The identifier
// segment is mandatory for PUT and DELETE; its absence is a validation error,
// not a method error.
func (h *Handler) missingID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.resolve(w, r); !ok {
		return
	}
	httpx.Error(w, http.StatusBadRequest, httpx.ErrValidation.Error()+": id")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resolve(w, r)
	if !ok {
		return
	}
	docs, err := h.store.List(r.Context(), kind)
	if err != nil {
		h.respondError(w, "list", kind, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resolve(w, r)
	if !ok {
		return
	}
	doc, err := h.store.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get", kind, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var body document.Document
	if err := httpx.DecodeJSON(r, &body); err != nil || body == nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	if kind.Descriptor().Credential {
		if err := hashPasswordField(body); err != nil {
			h.respondError(w, "create", kind, err)
			return
		}
	}

	var (
		doc document.Document
		err error
	)
	if kind == registry.KindEventMaterials && h.reservations != nil {
		if missing := missingRequired(kind, body); missing != "" {
			httpx.Error(w, http.StatusBadRequest, httpx.ErrValidation.Error()+": "+missing)
			return
		}
		doc, err = h.reservations.Reserve(r.Context(), body)
	} else {
		doc, err = h.store.Create(r.Context(), kind, body)
	}
	if err != nil {
		h.respondError(w, "create", kind, err)
		return
	}

	h.recordAudit(r, "create", kind, doc)
	if kind == registry.KindEventUTMs && h.qr != nil {
		if id, ok := doc["id"].(string); ok {
			if err := h.qr.EnqueueUTMQRRender(r.Context(), id); err != nil && h.logger != nil {
				h.logger.Warn("enqueue qr render", slog.Any("error", err))
			}
		}
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	principal, err := h.authenticate(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	current, err := h.store.Get(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, "update", kind, err)
		return
	}

	desc := kind.Descriptor()
	resourceDept := ""
	if desc.DepartmentScoped {
		resourceDept, _ = current[desc.DepartmentField].(string)
	}
	decision := authz.Decide(authz.ParsePositions(principal.Position), kind, resourceDept, principal.Department)
	if !decision.Allowed {
		httpx.RespondError(w, httpx.ErrPermissionDenied)
		return
	}

	var patch document.Document
	if err := httpx.DecodeJSON(r, &patch); err != nil || patch == nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if desc.Credential {
		if err := hashPasswordField(patch); err != nil {
			h.respondError(w, "update", kind, err)
			return
		}
	}

	doc, err := h.store.Patch(r.Context(), kind, id, patch)
	if err != nil {
		h.respondError(w, "update", kind, err)
		return
	}

	h.recordAudit(r, "update", kind, doc)
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var err error
	if kind == registry.KindEventMaterials && h.reservations != nil {
		err = h.reservations.Release(r.Context(), id)
	} else {
		err = h.store.Delete(r.Context(), kind, id)
	}
	if err != nil {
		h.respondError(w, "delete", kind, err)
		return
	}

	h.recordAudit(r, "delete", kind, document.Document{"id": id})
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// authenticate extracts and verifies the bearer token for gated operations.
func (h *Handler) authenticate(r *http.Request) (*shared.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, httpx.ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, httpx.ErrMissingToken
	}
	principal, err := h.verifier.Verify(token)
	if err != nil {
		return nil, httpx.ErrInvalidToken
	}
	return principal, nil
}

// hashPasswordField replaces a plaintext password with its bcrypt hash before
// the document reaches the store.
func hashPasswordField(body document.Document) error {
	raw, ok := body["password"].(string)
	if !ok || raw == "" {
		delete(body, "password")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	body["password"] = string(hash)
	return nil
}

func missingRequired(kind registry.Kind, body document.Document) string {
	for _, field := range kind.Descriptor().Required {
		switch v := body[field].(type) {
		case nil:
			return field
		case string:
			if v == "" {
				return field
			}
		}
	}
	return ""
}

// respondError maps store and service failures onto the error taxonomy,
// logging only unexpected ones.
func (h *Handler) respondError(w http.ResponseWriter, op string, kind registry.Kind, err error) {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrMaterialNotFound):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrLineItemNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		if h.logger != nil {
			h.logger.Error("dispatcher failure",
				slog.String("op", op),
				slog.String("collection", kind.String()),
				slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func (h *Handler) recordAudit(r *http.Request, action string, kind registry.Kind, doc document.Document) {
	if h.audit == nil {
		return
	}
	actorID := ""
	if principal, err := h.authenticate(r); err == nil {
		actorID = principal.ID
	}
	id, _ := doc["id"].(string)
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Collection: kind.Collection(),
		DocumentID: id,
	}); err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
