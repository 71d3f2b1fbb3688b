package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backstage-events/backstage/internal/shared"
)

const credentialCollection = "team-members"

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	IsEmpty(ctx context.Context) (bool, error)
	SeedBootstrapAdmin(ctx context.Context, cred Credential) error
}

// PGRepository implements Repository over the documents table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a credential by exact-match email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, body, created_at, updated_at FROM documents WHERE collection = $1 AND body ->> 'email' = $2`,
		credentialCollection, email)

	var (
		id  uuid.UUID
		raw []byte
	)
	cred := &Credential{}
	if err := row.Scan(&id, &raw, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find by email: %w", err)
	}
	if err := decodeCredential(raw, cred); err != nil {
		return nil, err
	}
	cred.ID = id.String()
	return cred, nil
}

// IsEmpty reports whether the credential collection has no records at all.
func (r *PGRepository) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1)`, credentialCollection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("auth: count credentials: %w", err)
	}
	return !exists, nil
}

// SeedBootstrapAdmin inserts the bootstrap admin only while the collection is
// still empty. The guard runs inside the insert statement; when two first
// logins race past it, the email unique index stops the loser and that
// outcome counts as already seeded.
func (r *PGRepository) SeedBootstrapAdmin(ctx context.Context, cred Credential) error {
	body, err := json.Marshal(map[string]any{
		"name":      cred.Name,
		"email":     cred.Email,
		"password":  cred.PasswordHash,
		"role":      cred.Role,
		"position":  cred.Position,
		"is_active": true,
	})
	if err != nil {
		return fmt.Errorf("auth: marshal bootstrap admin: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO documents (id, collection, body)
		 SELECT $1, $2, $3
		 WHERE NOT EXISTS (SELECT 1 FROM documents WHERE collection = $2)`,
		uuid.New(), credentialCollection, body)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("auth: seed bootstrap admin: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func decodeCredential(raw []byte, cred *Credential) error {
	var body struct {
		Name       string   `json:"name"`
		Email      string   `json:"email"`
		Password   string   `json:"password"`
		Role       string   `json:"role"`
		Position   []string `json:"position"`
		Department string   `json:"department"`
		IsActive   *bool    `json:"is_active"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("auth: decode credential: %w", err)
	}
	cred.Name = body.Name
	cred.Email = body.Email
	cred.PasswordHash = body.Password
	cred.Role = body.Role
	cred.Position = body.Position
	cred.Department = body.Department
	cred.IsActive = body.IsActive == nil || *body.IsActive
	return nil
}

var _ Repository = (*PGRepository)(nil)
