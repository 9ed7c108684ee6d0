package models

import "time"

// User is the stored account record. HashedPassword and Salt never leave the
// server; transport projections must drop them.
type User struct {
	ID             string    `db:"id"`
	UserName       string    `db:"username"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	Salt           string    `db:"salt"`
	FirstName      *string   `db:"first_name"`
	LastName       *string   `db:"last_name"`
	IsSuperuser    bool      `db:"is_superuser"`
	IsActive       bool      `db:"is_active"`
	IsReported     bool      `db:"is_reported"`
	IsBlocked      bool      `db:"is_blocked"`
	Preferences    *string   `db:"preferences"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// SetPassword replaces the digest and the salt that produced it.
// The two are only ever written together.
func (u *User) SetPassword(digest, salt string) {
	u.HashedPassword = digest
	u.Salt = salt
}
