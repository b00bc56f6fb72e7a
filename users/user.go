package users

import (
	"time"

	"github.com/kbukum/authgate/auth/password"
)

// User is a registered account. The credential fields never leave the
// package in API responses.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Email        string    `gorm:"type:text;not null;uniqueIndex:idx_users_email" json:"email"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	PasswordAlgo string    `gorm:"column:password_algo;type:text;not null" json:"-"`
	Salt         string    `gorm:"type:text;not null" json:"-"`
	PasswordHash string    `gorm:"column:password_hash;type:text;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName overrides the GORM table name.
func (User) TableName() string { return "users" }

// Credential returns the stored password hash.
func (u *User) Credential() password.Credential {
	return password.Credential{
		Algorithm: password.Algorithm(u.PasswordAlgo),
		Salt:      u.Salt,
		Hash:      u.PasswordHash,
	}
}

// NewUser is the input to Directory.Create.
type NewUser struct {
	Email    string
	Name     string
	Password string
}
