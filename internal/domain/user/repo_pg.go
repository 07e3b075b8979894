package user

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, user_name, first_name, last_name, email, phone_number, roles, status, created`

// scanUser reads userCols in order.
func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserName, &u.FirstName, &u.LastName, &u.Email,
		&u.PhoneNumber, &u.Roles, &u.Status, &u.Created)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) GetByUserName(ctx context.Context, userName string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE user_name = $1`, userName))
}
