package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/backstage-events/backstage/internal/platform/httpx"
	"github.com/backstage-events/backstage/internal/shared"
)

// Fixed identity of the bootstrap admin. Its password comes from
// configuration; only the account identity is hardcoded.
const (
	BootstrapAdminName  = "Administrador"
	BootstrapAdminEmail = "admin@backstage.local"
	BootstrapAdminRole  = "admin"
)

// LoginResult carries the signed token and the client-safe user projection.
type LoginResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Service wraps authentication business rules.
type Service struct {
	repo              Repository
	tokens            *Tokens
	logger            *slog.Logger
	bootstrapPassword string
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens, logger *slog.Logger, bootstrapPassword string) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger, bootstrapPassword: bootstrapPassword}
}

// Login validates credentials and issues a signed token.
//
// If the credential collection is entirely empty the fixed bootstrap admin is
// seeded first, regardless of the requested email. The seed is idempotent:
// repeated logins against an empty collection create exactly one record.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.ensureBootstrapAdmin(ctx); err != nil {
		return nil, err
	}

	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrInvalidUser
		}
		return nil, err
	}
	if !cred.IsActive {
		return nil, httpx.ErrInvalidUser
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, httpx.ErrIncorrectPassword
	}

	token, err := s.tokens.Issue(cred, time.Now())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: cred.Public()}, nil
}

func (s *Service) ensureBootstrapAdmin(ctx context.Context) error {
	empty, err := s.repo.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.bootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SeedBootstrapAdmin(ctx, Credential{
		Name:         BootstrapAdminName,
		Email:        BootstrapAdminEmail,
		PasswordHash: string(hash),
		Role:         BootstrapAdminRole,
		Position:     []string{"admin"},
		IsActive:     true,
	}); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("bootstrap admin seeded", slog.String("email", BootstrapAdminEmail))
	}
	return nil
}
