package session

import (
	"context"
	"errors"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// ErrEmptyToken is returned when saving a session without a token.
var ErrEmptyToken = errors.New("session token is empty")

// Session is the persisted pair: the bearer token and the user it belongs to.
type Session struct {
	Token string
	User  *domain.User
}

// Empty reports whether no token is stored.
func (s Session) Empty() bool {
	return s.Token == ""
}

// Store persists the session. Load on an empty store returns the zero
// Session and a nil error. Save and Clear always write or remove both
// entries together, and Clear is idempotent.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

func validate(s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}
	return nil
}
