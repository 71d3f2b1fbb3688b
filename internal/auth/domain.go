package auth

import "time"

// Credential is a team member record as used for authentication.
type Credential struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Position     []string
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection returned to clients after login. It never
// carries the password hash.
type PublicUser struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Position   []string `json:"position"`
	Department string   `json:"department,omitempty"`
}

// Public returns the client-safe projection of the credential.
func (c *Credential) Public() PublicUser {
	position := c.Position
	if position == nil {
		position = []string{}
	}
	return PublicUser{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Role:       c.Role,
		Position:   position,
		Department: c.Department,
	}
}
