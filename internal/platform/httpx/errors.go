package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the API layer. The client-facing messages are part of
// the wire contract consumed by the admin frontend.
var (
	ErrInvalidCollection = errors.New("Coleção inválida")
	ErrNotFound          = errors.New("Item não encontrado")
	ErrMethodNotAllowed  = errors.New("Método não permitido")
	ErrValidation        = errors.New("Campos obrigatórios ausentes")

	ErrMissingToken     = errors.New("missing token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("permission denied")

	ErrInvalidUser       = errors.New("invalid or inactive user")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// internalMessage is returned to the client for every unexpected failure; the
// real cause is only logged server-side.
const internalMessage = "Erro interno do servidor"

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCollection), errors.Is(err, ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidUser), errors.Is(err, ErrIncorrectPassword):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrMethodNotAllowed):
		Error(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed.Error())
	default:
		Error(w, http.StatusInternalServerError, internalMessage)
	}
}
