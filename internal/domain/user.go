package domain

import "time"

// Seeded role names.
const (
	RoleAdmin        = "Admin"
	RoleManufacturer = "Manufacturer"
	RoleCustomer     = "Customer"
)

// User is an identity account. Username, email and phone are each unique.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenRoles lists the roles carried in access tokens: every assigned role,
// or Customer when none is assigned.
func (u *User) TokenRoles() []string {
	if len(u.Roles) == 0 {
		return []string{RoleCustomer}
	}
	return append([]string(nil), u.Roles...)
}

// Role is a named permission set.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
