package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/redis"
)

var (
	errRedisNotStarted = errors.New("tokenstore: redis not started")
	errDuplicateHash   = errors.New("tokenstore: token hash already stored")
)

// RedisProvider returns the redis client, or nil before it is started.
// *redis.Component implements it.
type RedisProvider interface {
	Client() *redis.Client
}

// RedisStore keeps one key per token, <prefix>:<ns>:<hash>, holding the
// JSON record. The key TTL equals the remaining token lifetime, so Redis
// expires records on its own.
type RedisStore struct {
	rdb    RedisProvider
	h      hasher
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed token store.
func NewRedisStore(rdb RedisProvider, secret, prefix string, log *logger.Logger, opts ...Option) *RedisStore {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if prefix == "" {
		prefix = "authgate"
	}
	o := buildOptions(opts)
	return &RedisStore{
		rdb:    rdb,
		h:      hasher{secret: secret},
		prefix: prefix,
		log:    log.WithComponent("tokenstore"),
		now:    o.now,
	}
}

func (s *RedisStore) key(ns Namespace, hash string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, ns, hash)
}

func (s *RedisStore) client(ns Namespace, op string) (*redis.Client, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	c := s.rdb.Client()
	if c == nil {
		return nil, apperrors.StorageFailure(op, errRedisNotStarted)
	}
	return c, nil
}

// Persist writes the record with SET NX. A token that is already expired
// is not written, since it could never be active.
func (s *RedisStore) Persist(ctx context.Context, ns Namespace, token, subjectID string, expiresAt time.Time, meta Meta) error {
	op := "persist " + string(ns) + " token"
	c, err := s.client(ns, op)
	if err != nil {
		return err
	}

	now := s.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		s.log.WithContext(ctx).Debug("Skipping persist of expired token", logger.Fields("namespace", string(ns)))
		return nil
	}

	hash := s.h.hash(token)
	rec := Record{
		ID:        uuid.NewString(),
		TokenHash: hash,
		SubjectID: subjectID,
		IssuedAt:  now.UTC(),
		ExpiresAt: expiresAt.UTC(),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.StorageFailure(op, err)
	}

	ok, err := c.SetNX(ctx, s.key(ns, hash), data, ttl)
	if err != nil {
		s.log.WithContext(ctx).Error("Token persist failed", logger.ErrorFields(op, err))
		return apperrors.StorageFailure(op, err)
	}
	if !ok {
		return apperrors.StorageFailure(op, errDuplicateHash)
	}
	return nil
}

func (s *RedisStore) IsActive(ctx context.Context, ns Namespace, token string) (bool, error) {
	rec, err := s.FindActive(ctx, ns, token)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (s *RedisStore) FindActive(ctx context.Context, ns Namespace, token string) (*Record, error) {
	op := "find " + string(ns) + " token"
	c, err := s.client(ns, op)
	if err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, c, s.key(ns, s.h.hash(token)))
	if err != nil {
		return nil, apperrors.StorageFailure(op, err)
	}
	if !rec.Active(s.now()) {
		return nil, nil
	}
	return rec, nil
}

// Revoke sets RevokedAt inside a WATCH/MULTI update that keeps the key's
// TTL, so of two concurrent revokes exactly one reports true.
func (s *RedisStore) Revoke(ctx context.Context, ns Namespace, token string) (bool, error) {
	op := "revoke " + string(ns) + " token"
	c, err := s.client(ns, op)
	if err != nil {
		return false, err
	}

	revoked, err := c.Update(ctx, s.key(ns, s.h.hash(token)), func(current string) (string, bool, error) {
		var rec Record
		if err := json.Unmarshal([]byte(current), &rec); err != nil {
			return "", false, fmt.Errorf("decode token record: %w", err)
		}
		if rec.RevokedAt != nil {
			return "", false, nil
		}
		revokedAt := s.now().UTC()
		rec.RevokedAt = &revokedAt
		data, err := json.Marshal(rec)
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	})
	if err != nil {
		return false, apperrors.StorageFailure(op, err)
	}
	return revoked, nil
}

// Purge is a no-op: Redis expires keys itself.
func (s *RedisStore) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// load returns the record at key, or nil when the key does not exist.
func (s *RedisStore) load(ctx context.Context, c *redis.Client, key string) (*Record, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	return &rec, nil
}
