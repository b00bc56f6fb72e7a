package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/authgate/auth/authctx"
	"github.com/kbukum/authgate/auth/password"
	"github.com/kbukum/authgate/auth/token"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/observability"
	"github.com/kbukum/authgate/tokenstore"
	"github.com/kbukum/authgate/users"
)

// RefreshTokenBytes is the number of random bytes in a refresh token.
const RefreshTokenBytes = 32

// SignupInput is the input to Signup.
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// LoginInput is the input to Login.
type LoginInput struct {
	Email    string
	Password string
}

// Session is returned by Signup and Login. ExpiresAt is the access token expiry.
type Session struct {
	User         *users.User `json:"user"`
	AccessToken  string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

// Refreshed is returned by Refresh. RefreshToken is set only when
// rotation is enabled.
type Refreshed struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Service issues, refreshes, revokes and checks tokens.
type Service struct {
	cfg     Config
	users   UserDirectory
	codec   token.Codec
	store   tokenstore.Store
	metrics *observability.AuthMetrics
	log     *logger.Logger
	now     func() time.Time
}

var _ Authenticator = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithMetrics records operation counters on m.
func WithMetrics(m *observability.AuthMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for refresh token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCodec creates the token codec selected by cfg.
func NewCodec(cfg Config, opts ...token.Option) (token.Codec, error) {
	return token.New(cfg.Token.Format, cfg.Token.Secret, opts...)
}

// NewService creates the auth service.
func NewService(cfg Config, dir UserDirectory, codec token.Codec, store tokenstore.Store, log *logger.Logger, opts ...Option) *Service {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Service{
		cfg:   cfg,
		users: dir,
		codec: codec,
		store: store,
		log:   log.WithComponent("auth"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates a user and opens a session for it.
func (s *Service) Signup(ctx context.Context, in SignupInput, meta tokenstore.Meta) (sess *Session, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSignup)
	defer func() { observability.EndSpan(span, err) }()

	u, err := s.users.Create(ctx, users.NewUser{Email: in.Email, Name: in.Name, Password: in.Password})
	if err != nil {
		s.metrics.Failure(ctx, "signup", failureReason(err))
		return nil, err
	}
	span.SetAttributes(attribute.String(observability.AttrUserID, u.ID))

	sess, err = s.open(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.metrics.Signup(ctx)
	s.log.WithContext(ctx).Info("User signed up", logger.Fields(logger.FieldUserID, u.ID))
	return sess, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, in LoginInput, meta tokenstore.Meta) (sess *Session, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanLogin)
	defer func() { observability.EndSpan(span, err) }()

	u, err := s.users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		s.metrics.Failure(ctx, "login", failureReason(err))
		return nil, err
	}
	span.SetAttributes(attribute.String(observability.AttrUserID, u.ID))

	sess, err = s.open(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.metrics.Login(ctx)
	s.log.WithContext(ctx).Info("User logged in", logger.Fields(logger.FieldUserID, u.ID))
	return sess, nil
}

// Refresh issues a new access token for an active refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta tokenstore.Meta) (res *Refreshed, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRefresh)
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.MissingField("refreshToken")
	}

	rec, err := s.store.FindActive(ctx, tokenstore.Refresh, refreshToken)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.metrics.Failure(ctx, "refresh", "invalid_refresh_token")
		s.log.WithContext(ctx).Debug("Refresh with inactive token")
		return nil, apperrors.InvalidRefreshToken()
	}
	span.SetAttributes(attribute.String(observability.AttrUserID, rec.SubjectID))

	access, claims, err := s.issueAccess(ctx, rec.SubjectID, meta)
	if err != nil {
		return nil, err
	}
	res = &Refreshed{AccessToken: access, ExpiresAt: claims.Expiry().UTC()}

	if s.cfg.RotateRefreshTokens {
		if res.RefreshToken, err = s.rotate(ctx, refreshToken, rec.SubjectID, meta); err != nil {
			s.discard(ctx, tokenstore.Access, access)
			return nil, err
		}
	}

	s.metrics.Refresh(ctx)
	return res, nil
}

// Logout revokes the refresh token and, when given, the access token.
// Unknown or already revoked tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanLogout)
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return apperrors.MissingField("refreshToken")
	}
	if _, err := s.store.Revoke(ctx, tokenstore.Refresh, refreshToken); err != nil {
		return err
	}
	if accessToken != "" {
		if _, err := s.store.Revoke(ctx, tokenstore.Access, accessToken); err != nil {
			return err
		}
	}

	s.metrics.Logout(ctx)
	s.log.WithContext(ctx).Info("User logged out")
	return nil
}

// Authenticate resolves a bearer token to an identity. Every token
// failure yields the same Unauthorized error; the reason is only logged.
// Storage errors are returned as they are, so an outage is a 5xx.
func (s *Service) Authenticate(ctx context.Context, bearer string) (id *authctx.Identity, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanAuthenticate)
	defer func() { observability.EndSpan(span, err) }()

	if bearer == "" {
		return nil, s.reject(ctx, "missing")
	}

	claims, err := s.codec.Verify(bearer)
	if err != nil {
		return nil, s.reject(ctx, tokenReason(err))
	}

	active, err := s.store.IsActive(ctx, tokenstore.Access, bearer)
	if err != nil {
		return nil, s.unavailable(ctx, "check access token", err)
	}
	if !active {
		return nil, s.reject(ctx, "inactive")
	}

	if claims.Subject == "" {
		return nil, s.reject(ctx, "no_subject")
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return nil, s.reject(ctx, "unknown_user")
		}
		return nil, s.unavailable(ctx, "load user", err)
	}

	span.SetAttributes(attribute.String(observability.AttrUserID, u.ID))
	return &authctx.Identity{User: u, Claims: claims, Token: bearer}, nil
}

// unavailable logs a storage error hit while authenticating and returns
// it as an AppError.
func (s *Service) unavailable(ctx context.Context, op string, err error) error {
	s.log.WithContext(ctx).Error("Authentication storage error", logger.ErrorFields(op, err))
	s.metrics.Failure(ctx, "authenticate", "store_error")
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.StorageFailure(op, err)
}

func (s *Service) reject(ctx context.Context, reason string) error {
	s.log.WithContext(ctx).Debug("Bearer token rejected", logger.Fields(logger.FieldReason, reason))
	s.metrics.Failure(ctx, "authenticate", reason)
	return apperrors.InvalidToken()
}

// open issues an access and a refresh token for u. Both hashes are
// persisted before the values are returned.
func (s *Service) open(ctx context.Context, u *users.User, meta tokenstore.Meta) (*Session, error) {
	access, claims, err := s.issueAccess(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueRefresh(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    claims.Expiry().UTC(),
	}, nil
}

func (s *Service) issueAccess(ctx context.Context, subject string, meta tokenstore.Meta) (string, token.Claims, error) {
	raw, claims, err := s.codec.Mint(token.Claims{Subject: subject}, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", token.Claims{}, apperrors.Internal(err)
	}
	if err := s.store.Persist(ctx, tokenstore.Access, raw, subject, claims.Expiry(), meta); err != nil {
		return "", token.Claims{}, err
	}
	return raw, claims, nil
}

func (s *Service) issueRefresh(ctx context.Context, subject string, meta tokenstore.Meta) (string, error) {
	raw, err := password.GenerateToken(RefreshTokenBytes)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	expiresAt := s.now().Add(s.cfg.RefreshTokenTTL)
	if err := s.store.Persist(ctx, tokenstore.Refresh, raw, subject, expiresAt, meta); err != nil {
		return "", err
	}
	return raw, nil
}

// rotate persists a new refresh token and then revokes the presented one.
// When another request revoked it first, the new token is discarded and
// the refresh fails.
func (s *Service) rotate(ctx context.Context, presented, subject string, meta tokenstore.Meta) (string, error) {
	next, err := s.issueRefresh(ctx, subject, meta)
	if err != nil {
		return "", err
	}
	revoked, err := s.store.Revoke(ctx, tokenstore.Refresh, presented)
	if err != nil {
		s.discard(ctx, tokenstore.Refresh, next)
		return "", err
	}
	if !revoked {
		s.discard(ctx, tokenstore.Refresh, next)
		s.metrics.Failure(ctx, "refresh", "invalid_refresh_token")
		s.log.WithContext(ctx).Debug("Refresh token already rotated", logger.Fields(logger.FieldUserID, subject))
		return "", apperrors.InvalidRefreshToken()
	}
	return next, nil
}

// discard revokes a token issued by a request that then failed.
func (s *Service) discard(ctx context.Context, ns tokenstore.Namespace, tok string) {
	if _, err := s.store.Revoke(ctx, ns, tok); err != nil {
		s.log.WithContext(ctx).Warn("Failed to discard unused token", logger.ErrorFields("discard "+string(ns)+" token", err))
	}
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return "expired"
	case errors.Is(err, token.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}

func failureReason(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return strings.ToLower(string(appErr.Code))
	}
	return "internal"
}
