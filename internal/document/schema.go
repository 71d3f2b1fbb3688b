package document

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/backstage-events/backstage/internal/platform/httpx"
	"github.com/backstage-events/backstage/internal/registry"
)

var validate = validator.New()

// validateRequired enforces the per-kind required fields on create.
func validateRequired(kind registry.Kind, body Document) error {
	for _, field := range kind.Descriptor().Required {
		if err := validate.Var(body[field], "required"); err != nil {
			return fmt.Errorf("%w: %s", httpx.ErrValidation, field)
		}
	}
	return nil
}
