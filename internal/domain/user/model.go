package user

import "time"

// Role names as they appear in token claims and the users table.
const (
	RoleUser      = "user"
	RoleDoctor    = "doctor"
	RoleTester    = "tester"
	RoleAuthority = "government_authority"
)

// User maps to the users table. It is read-only for this service.
type User struct {
	ID          int64     `db:"id" json:"id"`
	UserName    string    `db:"user_name" json:"user_name"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Roles       []string  `db:"roles" json:"roles"`
	Status      string    `db:"status" json:"status"`
	Created     time.Time `db:"created" json:"created"`
}
