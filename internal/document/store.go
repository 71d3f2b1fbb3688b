// Package document implements the generic persistence layer shared by every
// entity collection. Records are schemaless JSONB bodies keyed by UUID; the
// store owns bookkeeping fields and never leaks the internal key name.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backstage-events/backstage/internal/platform/httpx"
	"github.com/backstage-events/backstage/internal/registry"
)

// Document is one entity record as seen at the API boundary.
type Document = map[string]any

// bookkeepingFields are stripped from every caller-supplied payload,
// regardless of what the client sends.
var bookkeepingFields = []string{"_id", "id", "__v", "createdAt", "created_at", "updatedAt", "updated_at"}

// Store provides CRUD over the documents table.
type Store struct {
	pool   *pgxpool.Pool
	lists  *ListCache
	logger *slog.Logger
}

// NewStore constructs a Store. The list cache may be nil.
func NewStore(pool *pgxpool.Pool, lists *ListCache, logger *slog.Logger) *Store {
	return &Store{pool: pool, lists: lists, logger: logger}
}

// List returns every document of the kind in creation order.
func (s *Store) List(ctx context.Context, kind registry.Kind) ([]Document, error) {
	if docs, ok := s.lists.Get(ctx, kind); ok {
		return docs, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, body, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY created_at, id`,
		kind.Collection())
	if err != nil {
		return nil, fmt.Errorf("document: list %s: %w", kind, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows, kind)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: list %s: %w", kind, err)
	}

	s.lists.Set(ctx, kind, docs)
	return docs, nil
}

// Get returns a single document or httpx.ErrNotFound.
func (s *Store) Get(ctx context.Context, kind registry.Kind, id string) (Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, httpx.ErrNotFound
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, body, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		kind.Collection(), docID)
	doc, err := scanDocument(row, kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	return doc, err
}

// Create validates and persists a new document, returning it with its public id.
func (s *Store) Create(ctx context.Context, kind registry.Kind, fields Document) (Document, error) {
	body := cloneWithoutBookkeeping(fields)
	if err := validateRequired(kind, body); err != nil {
		return nil, err
	}
	if _, ok := body["is_active"]; !ok {
		body["is_active"] = true
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("document: marshal %s: %w", kind, err)
	}

	id := uuid.New()
	var createdAt, updatedAt time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, collection, body) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		id, kind.Collection(), raw).Scan(&createdAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: registro duplicado", httpx.ErrValidation)
		}
		return nil, fmt.Errorf("document: insert %s: %w", kind, err)
	}

	s.lists.Invalidate(ctx, kind)
	return assemble(kind, id.String(), body, createdAt, updatedAt), nil
}

// Patch applies a partial update. Caller-supplied identifier and bookkeeping
// fields are discarded and updated_at is refreshed.
func (s *Store) Patch(ctx context.Context, kind registry.Kind, id string, patch Document) (Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, httpx.ErrNotFound
	}
	clean := cloneWithoutBookkeeping(patch)

	var result Document
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		var raw []byte
		row := tx.QueryRow(ctx,
			`SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
			kind.Collection(), docID)
		if err := row.Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return fmt.Errorf("document: lock %s: %w", kind, err)
		}

		body := make(Document)
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("document: decode %s: %w", kind, err)
		}
		for k, v := range clean {
			body[k] = v
		}

		merged, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("document: marshal %s: %w", kind, err)
		}

		var createdAt, updatedAt time.Time
		err = tx.QueryRow(ctx,
			`UPDATE documents SET body = $1, updated_at = now() WHERE collection = $2 AND id = $3 RETURNING created_at, updated_at`,
			merged, kind.Collection(), docID).Scan(&createdAt, &updatedAt)
		if err != nil {
			return fmt.Errorf("document: update %s: %w", kind, err)
		}
		result = assemble(kind, docID.String(), body, createdAt, updatedAt)
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: registro duplicado", httpx.ErrValidation)
		}
		return nil, err
	}

	s.lists.Invalidate(ctx, kind)
	return result, nil
}

// Delete removes a document or returns httpx.ErrNotFound.
func (s *Store) Delete(ctx context.Context, kind registry.Kind, id string) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return httpx.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, kind.Collection(), docID)
	if err != nil {
		return fmt.Errorf("document: delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}

	s.lists.Invalidate(ctx, kind)
	return nil
}

// Count returns the number of documents of the kind.
func (s *Store) Count(ctx context.Context, kind registry.Kind) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = $1`, kind.Collection()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("document: count %s: %w", kind, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, kind registry.Kind) (Document, error) {
	var (
		id                   uuid.UUID
		raw                  []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	body := make(Document)
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("document: decode %s: %w", kind, err)
	}
	return assemble(kind, id.String(), body, createdAt, updatedAt), nil
}

// assemble builds the public projection: body fields plus the id alias and
// timestamps, with credential material redacted.
func assemble(kind registry.Kind, id string, body Document, createdAt, updatedAt time.Time) Document {
	doc := make(Document, len(body)+3)
	for k, v := range body {
		doc[k] = v
	}
	if kind.Descriptor().Credential {
		delete(doc, "password")
	}
	doc["id"] = id
	doc["createdAt"] = createdAt.UTC()
	doc["updatedAt"] = updatedAt.UTC()
	return doc
}

// Sanitize returns a copy of fields without caller-supplied bookkeeping keys.
// Writers bypassing the store use it to keep payload hygiene consistent.
func Sanitize(fields Document) Document {
	return cloneWithoutBookkeeping(fields)
}

func cloneWithoutBookkeeping(fields Document) Document {
	clean := make(Document, len(fields))
	for k, v := range fields {
		clean[k] = v
	}
	for _, k := range bookkeepingFields {
		delete(clean, k)
	}
	return clean
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
