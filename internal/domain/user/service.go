package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/upstac/consultation/internal/platform/auth"
)

// ErrUserNotFound is returned when the authenticated subject has no users row.
var ErrUserNotFound = errors.New("user not found")

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

// LoggedInUser resolves the caller the auth middleware placed on ctx.
func (s *Service) LoggedInUser(ctx context.Context) (*User, error) {
	name := auth.UserNameFromContext(ctx)
	if name == "" {
		return nil, auth.ErrUnauthenticated
	}
	u, err := s.users.GetByUserName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", name, err)
	}
	return u, nil
}
