package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/authgate/database"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
)

var errNotStarted = errors.New("tokenstore: database not started")

// DBProvider returns the open database, or nil before it is started.
type DBProvider interface {
	DB() *database.DB
}

// TokenRow holds the columns shared by both token tables. It is exported
// because GORM only embeds exported fields.
type TokenRow struct {
	ID        string     `gorm:"primaryKey;type:text"`
	TokenHash string     `gorm:"type:text;not null;uniqueIndex"`
	SubjectID string     `gorm:"type:text;not null;index"`
	IssuedAt  time.Time  `gorm:"not null"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time `gorm:"default:null"`
	UserAgent string     `gorm:"type:text;not null;default:''"`
	IP        string     `gorm:"type:text;not null;default:''"`
}

// AccessToken is the GORM model for the access_tokens table.
type AccessToken struct{ TokenRow }

func (AccessToken) TableName() string { return "access_tokens" }

// RefreshToken is the GORM model for the refresh_tokens table.
type RefreshToken struct{ TokenRow }

func (RefreshToken) TableName() string { return "refresh_tokens" }

// Models lists the GORM models for auto-migration.
func Models() []interface{} {
	return []interface{}{&AccessToken{}, &RefreshToken{}}
}

func tableFor(ns Namespace) (string, error) {
	switch ns {
	case Access:
		return AccessToken{}.TableName(), nil
	case Refresh:
		return RefreshToken{}.TableName(), nil
	default:
		return "", ns.Validate()
	}
}

// GormStore is the SQL-backed Store. Uniqueness of token hashes comes from
// the unique index on token_hash.
type GormStore struct {
	db  DBProvider
	h   hasher
	log *logger.Logger
	now func() time.Time
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a GORM-backed token store.
func NewGormStore(db DBProvider, secret string, log *logger.Logger, opts ...Option) *GormStore {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	o := buildOptions(opts)
	return &GormStore{
		db:  db,
		h:   hasher{secret: secret},
		log: log.WithComponent("tokenstore"),
		now: o.now,
	}
}

func (s *GormStore) table(ctx context.Context, ns Namespace, op string) (*gorm.DB, error) {
	name, err := tableFor(ns)
	if err != nil {
		return nil, err
	}
	db := s.db.DB()
	if db == nil {
		return nil, apperrors.StorageFailure(op, errNotStarted)
	}
	return db.WithContext(ctx).Table(name), nil
}

// Persist inserts a row. Times are stored in UTC so SQLite compares them
// consistently. A failed insert is reported once and never retried.
func (s *GormStore) Persist(ctx context.Context, ns Namespace, token, subjectID string, expiresAt time.Time, meta Meta) error {
	op := "persist " + string(ns) + " token"
	row := TokenRow{
		ID:        uuid.NewString(),
		TokenHash: s.h.hash(token),
		SubjectID: subjectID,
		IssuedAt:  s.now().UTC(),
		ExpiresAt: expiresAt.UTC(),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}
	q, err := s.table(ctx, ns, op)
	if err != nil {
		return err
	}
	if err := q.Create(&row).Error; err != nil {
		s.log.WithContext(ctx).Error("Token persist failed", logger.ErrorFields(op, err))
		return apperrors.StorageFailure(op, err)
	}
	return nil
}

func (s *GormStore) IsActive(ctx context.Context, ns Namespace, token string) (bool, error) {
	rec, err := s.FindActive(ctx, ns, token)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (s *GormStore) FindActive(ctx context.Context, ns Namespace, token string) (*Record, error) {
	op := "find " + string(ns) + " token"
	q, err := s.table(ctx, ns, op)
	if err != nil {
		return nil, err
	}

	var row TokenRow
	err = q.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", s.h.hash(token), s.now().UTC()).
		Take(&row).Error
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, apperrors.StorageFailure(op, err)
	}
	return row.record(), nil
}

// Revoke is a single conditional UPDATE, so of two concurrent revokes of
// the same token exactly one reports true.
func (s *GormStore) Revoke(ctx context.Context, ns Namespace, token string) (bool, error) {
	op := "revoke " + string(ns) + " token"
	q, err := s.table(ctx, ns, op)
	if err != nil {
		return false, err
	}
	res := q.Where("token_hash = ? AND revoked_at IS NULL", s.h.hash(token)).
		Update("revoked_at", s.now().UTC())
	if res.Error != nil {
		return false, apperrors.StorageFailure(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, ns := range []Namespace{Access, Refresh} {
		q, err := s.table(ctx, ns, "purge tokens")
		if err != nil {
			return total, err
		}
		res := q.Where("expires_at <= ?", before.UTC()).Delete(&TokenRow{})
		if res.Error != nil {
			return total, apperrors.StorageFailure("purge "+string(ns)+" tokens", res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *TokenRow) record() *Record {
	rec := &Record{
		ID:        r.ID,
		TokenHash: r.TokenHash,
		SubjectID: r.SubjectID,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
		UserAgent: r.UserAgent,
		IP:        r.IP,
	}
	if r.RevokedAt != nil {
		t := *r.RevokedAt
		rec.RevokedAt = &t
	}
	return rec
}
