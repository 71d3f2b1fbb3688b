package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/backstage-events/backstage/internal/shared"
)

// TokenVerifier re-derives a principal from a signed token on every request.
type TokenVerifier interface {
	Verify(token string) (*shared.Principal, error)
}

// Tokens issues and verifies HS256 JWTs carrying the principal claims.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens constructs a Tokens helper.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: token secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token embedding the credential's identity and role claims.
func (t *Tokens) Issue(cred *Credential, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":      cred.ID,
		"email":    cred.Email,
		"name":     cred.Name,
		"role":     cred.Role,
		"position": cred.Position,
		"iat":      now.Unix(),
		"exp":      now.Add(t.ttl).Unix(),
	}
	if cred.Department != "" {
		claims["department"] = cred.Department
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token, returning the embedded principal.
func (t *Tokens) Verify(tokenString string) (*shared.Principal, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("auth: verify token: %w", err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported claim type %T", tok.Claims)
	}

	principal := &shared.Principal{}
	if sub, ok := claims["sub"].(string); ok {
		principal.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		principal.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		principal.Role = role
	}
	if dept, ok := claims["department"].(string); ok {
		principal.Department = dept
	}
	if raw, ok := claims["position"].([]any); ok {
		for _, tag := range raw {
			if s, ok := tag.(string); ok {
				principal.Position = append(principal.Position, s)
			}
		}
	}
	return principal, nil
}
