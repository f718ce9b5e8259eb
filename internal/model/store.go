package model

import "time"

// Store is a tenant's physical or logical stock location. Exactly one store
// per tenant is flagged as the main store.
type Store struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	IsMain    bool      `db:"is_main"`
	CreatedAt time.Time `db:"created_at"`
}

type User struct {
	ID        string `db:"id"`
	Firstname string `db:"firstname"`
	Lastname  string `db:"lastname"`
}

// DisplayName is the audit-trail rendering of a user.
func (u User) DisplayName() string {
	if u.Firstname == "" {
		return u.Lastname
	}
	if u.Lastname == "" {
		return u.Firstname
	}
	return u.Firstname + " " + u.Lastname
}
