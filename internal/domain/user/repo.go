package user

import "context"

type UserRepository interface {
	GetByUserName(ctx context.Context, userName string) (*User, error)
}
