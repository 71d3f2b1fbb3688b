package inventory

import (
	"context"
	"log/slog"

	"github.com/backstage-events/backstage/internal/document"
	"github.com/backstage-events/backstage/internal/registry"
)

// Service coordinates stock reservations for event-material line items.
type Service struct {
	repo   RepositoryPort
	lists  *document.ListCache
	logger *slog.Logger
}

// NewService builds a Service. The list cache may be nil.
func NewService(repo RepositoryPort, lists *document.ListCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, lists: lists, logger: logger}
}

// Reserve creates a line item and moves the reserved quantity from the
// material's stock to its reserved counter in one transaction. A zero
// quantity creates the line item without a stock movement.
func (s *Service) Reserve(ctx context.Context, body document.Document) (document.Document, error) {
	body = document.Sanitize(body)
	if _, ok := body["is_active"]; !ok {
		body["is_active"] = true
	}
	qty, err := quantityOf(body)
	if err != nil {
		return nil, err
	}
	materialID, _ := body["material"].(string)

	var created document.Document
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if qty > 0 {
			bal, err := tx.GetMaterialForUpdate(ctx, materialID)
			if err != nil {
				return err
			}
			if bal.Stock < qty {
				return ErrInsufficientStock
			}
			bal.Stock -= qty
			bal.Reserved += qty
			if err := tx.SetMaterialBalance(ctx, materialID, bal); err != nil {
				return err
			}
		}
		created, err = tx.InsertLineItem(ctx, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return created, nil
}

// Release deletes a line item and returns its reserved quantity to the
// material's stock. A line item whose material no longer exists is deleted
// without a stock movement.
func (s *Service) Release(ctx context.Context, lineItemID string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetLineItemForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}
		qty, err := quantityOf(item)
		if err != nil {
			qty = 0
		}
		materialID, _ := item["material"].(string)
		if qty > 0 && materialID != "" {
			bal, err := tx.GetMaterialForUpdate(ctx, materialID)
			switch err {
			case nil:
				bal.Stock += qty
				bal.Reserved -= qty
				if bal.Reserved < 0 {
					bal.Reserved = 0
				}
				if err := tx.SetMaterialBalance(ctx, materialID, bal); err != nil {
					return err
				}
			case ErrMaterialNotFound:
				if s.logger != nil {
					s.logger.Warn("release without material", slog.String("line_item", lineItemID), slog.String("material", materialID))
				}
			default:
				return err
			}
		}
		return tx.DeleteLineItem(ctx, lineItemID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	s.lists.Invalidate(ctx, registry.KindEventMaterials)
	s.lists.Invalidate(ctx, registry.KindMaterials)
}
