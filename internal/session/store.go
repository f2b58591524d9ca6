package session

import (
	"context"
	"errors"

	"github.com/fjod/lish_client/internal/domain"
)

// Store holds the authenticated user's session between runs.
// Consumers define this interface, not the backing storage.
type Store interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Clear(ctx context.Context) error
}

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("no session")
