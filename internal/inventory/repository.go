package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backstage-events/backstage/internal/document"
	"github.com/backstage-events/backstage/internal/platform/db"
	"github.com/backstage-events/backstage/internal/registry"
)

// MaterialBalance is the pair of counters a reservation moves together:
// available stock and the running total held by line items.
type MaterialBalance struct {
	Stock    float64
	Reserved float64
}

// TxRepository groups the operations available inside one reservation
// transaction.
type TxRepository interface {
	GetMaterialForUpdate(ctx context.Context, materialID string) (MaterialBalance, error)
	SetMaterialBalance(ctx context.Context, materialID string, bal MaterialBalance) error
	InsertLineItem(ctx context.Context, body document.Document) (document.Document, error)
	GetLineItemForUpdate(ctx context.Context, id string) (document.Document, error)
	DeleteLineItem(ctx context.Context, id string) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Repository implements RepositoryPort over the documents table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetMaterialForUpdate(ctx context.Context, materialID string) (MaterialBalance, error) {
	id, err := uuid.Parse(materialID)
	if err != nil {
		return MaterialBalance{}, ErrMaterialNotFound
	}
	var raw []byte
	err = t.tx.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		registry.KindMaterials.Collection(), id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return MaterialBalance{}, ErrMaterialNotFound
	}
	if err != nil {
		return MaterialBalance{}, fmt.Errorf("inventory: lock material: %w", err)
	}
	var body struct {
		Stock    float64 `json:"stock"`
		Reserved float64 `json:"reserved"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return MaterialBalance{}, fmt.Errorf("inventory: decode material: %w", err)
	}
	return MaterialBalance{Stock: body.Stock, Reserved: body.Reserved}, nil
}

func (t *txRepo) SetMaterialBalance(ctx context.Context, materialID string, bal MaterialBalance) error {
	id, err := uuid.Parse(materialID)
	if err != nil {
		return ErrMaterialNotFound
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE documents SET body = jsonb_set(jsonb_set(body, '{stock}', to_jsonb($1::numeric)), '{reserved}', to_jsonb($2::numeric)), updated_at = now()
		 WHERE collection = $3 AND id = $4`,
		bal.Stock, bal.Reserved, registry.KindMaterials.Collection(), id)
	if err != nil {
		return fmt.Errorf("inventory: update material balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMaterialNotFound
	}
	return nil
}

func (t *txRepo) InsertLineItem(ctx context.Context, body document.Document) (document.Document, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("inventory: marshal line item: %w", err)
	}
	id := uuid.New()
	var createdAt, updatedAt time.Time
	err = t.tx.QueryRow(ctx,
		`INSERT INTO documents (id, collection, body) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		id, registry.KindEventMaterials.Collection(), raw).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("inventory: insert line item: %w", err)
	}

	doc := make(document.Document, len(body)+3)
	for k, v := range body {
		doc[k] = v
	}
	doc["id"] = id.String()
	doc["createdAt"] = createdAt.UTC()
	doc["updatedAt"] = updatedAt.UTC()
	return doc, nil
}

func (t *txRepo) GetLineItemForUpdate(ctx context.Context, lineItemID string) (document.Document, error) {
	id, err := uuid.Parse(lineItemID)
	if err != nil {
		return nil, ErrLineItemNotFound
	}
	var raw []byte
	err = t.tx.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		registry.KindEventMaterials.Collection(), id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLineItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: lock line item: %w", err)
	}
	body := make(document.Document)
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("inventory: decode line item: %w", err)
	}
	body["id"] = lineItemID
	return body, nil
}

func (t *txRepo) DeleteLineItem(ctx context.Context, lineItemID string) error {
	id, err := uuid.Parse(lineItemID)
	if err != nil {
		return ErrLineItemNotFound
	}
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		registry.KindEventMaterials.Collection(), id)
	if err != nil {
		return fmt.Errorf("inventory: delete line item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
