// Package users is the user directory: account creation, lookup and
// credential checks over the GORM users table.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/authgate/auth/password"
	"github.com/kbukum/authgate/database"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/validation"
)

var errNotStarted = errors.New("users: database not started")

// DBProvider returns the open database, or nil before it is started.
// *database.Component implements it.
type DBProvider interface {
	DB() *database.DB
}

// Directory stores and authenticates users.
type Directory struct {
	db     DBProvider
	hasher password.Hasher
	log    *logger.Logger
	now    func() time.Time
}

// NewDirectory creates a user directory.
func NewDirectory(db DBProvider, hasher password.Hasher, log *logger.Logger) *Directory {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Directory{
		db:     db,
		hasher: hasher,
		log:    log.WithComponent("users"),
		now:    time.Now,
	}
}

func (d *Directory) conn(op string) (*database.DB, error) {
	db := d.db.DB()
	if db == nil {
		return nil, apperrors.StorageFailure(op, errNotStarted)
	}
	return db, nil
}

// GetByID returns the user with id, or NotFound.
func (d *Directory) GetByID(ctx context.Context, id string) (*User, error) {
	db, err := d.conn("get user")
	if err != nil {
		return nil, err
	}
	var u User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, database.FromDatabase(err, "get user", "user")
	}
	return &u, nil
}

// FindByEmail returns the user registered with email, or NotFound. The
// email is normalized before the lookup.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	db, err := d.conn("find user")
	if err != nil {
		return nil, err
	}
	var u User
	if err := db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, database.FromDatabase(err, "find user", "user")
	}
	return &u, nil
}

// Create validates in and stores a new user. A registered email yields Conflict.
func (d *Directory) Create(ctx context.Context, in NewUser) (*User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	pw := strings.TrimSpace(in.Password)

	v := validation.New().
		Required("email", email).
		Required("name", name).
		Required("password", pw)
	if v.HasErrors() {
		return nil, v.Validate()
	}
	v.Custom(validation.IsEmail(email), "email", "must be a valid email address").
		MinRunes("password", pw, 8)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	if _, err := d.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}

	cred, err := d.hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return nil, apperrors.Validation("Password must contain at least 8 characters")
		}
		return nil, apperrors.Internal(err)
	}

	now := d.now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordAlgo: string(cred.Algorithm),
		Salt:         cred.Salt,
		PasswordHash: cred.Hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	db, err := d.conn("create user")
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, apperrors.StorageFailure("create user", err)
	}

	d.log.WithContext(ctx).Info("User created", logger.Fields(logger.FieldUserID, u.ID))
	return u, nil
}

// Authenticate returns the user whose credential matches. Unknown emails
// and wrong passwords both yield the same Unauthorized error.
func (d *Directory) Authenticate(ctx context.Context, email, pw string) (*User, error) {
	email = NormalizeEmail(email)
	pw = strings.TrimSpace(pw)
	if email == "" || pw == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	u, err := d.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			d.log.WithContext(ctx).Debug("Login for unknown email")
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}

	if !d.hasher.Verify(pw, u.Credential()) {
		d.log.WithContext(ctx).Debug("Password mismatch", logger.Fields(logger.FieldUserID, u.ID))
		return nil, apperrors.InvalidCredentials()
	}
	return u, nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
