package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record. PasswordHash and RefreshToken never serialize:
// every flow that returns a user hands out Sanitize() output on top of that.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FullName      string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Avatar        string     `bun:"avatar,notnull" json:"avatar,omitempty"`
	CoverImage    string     `bun:"cover_image" json:"cover_image,omitempty"`
	RefreshToken  string     `bun:"refresh_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Sanitize returns a copy safe for outward-facing representations,
// with the credential fields cleared.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.RefreshToken = ""
	return &out
}

// Identity adapts the record to the Identity interface
func (u *User) Identity() Identity {
	return accountIdentity{
		id:       u.ID.String(),
		username: u.Username,
		email:    u.Email,
		fullName: u.FullName,
	}
}

type accountIdentity struct {
	id       string
	username string
	email    string
	fullName string
}

func (a accountIdentity) ID() string { return a.id }

func (a accountIdentity) Username() string { return a.username }

func (a accountIdentity) Email() string { return a.email }

func (a accountIdentity) FullName() string { return a.fullName }

var _ Identity = accountIdentity{}

// NormalizeUsername lowercases and trims a username so that lookups and
// the unique constraint behave case-insensitively.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
