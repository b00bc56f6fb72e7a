package token

import (
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// JWT is a Codec backed by golang-jwt. Tokens are interchangeable with
// Envelope tokens signed by the same secret.
type JWT struct {
	secret []byte
	now    func() time.Time
	parser *gojwt.Parser
}

var _ Codec = (*JWT)(nil)

// jwtClaims mirrors Claims with the library's registered claim types.
type jwtClaims struct {
	gojwt.RegisteredClaims
}

// NewJWT creates a golang-jwt backed codec using HS256.
func NewJWT(secret string, opts ...Option) (*JWT, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	o := buildOptions(opts)
	c := &JWT{secret: []byte(secret), now: o.now}
	c.parser = gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithoutClaimsValidation(),
	)
	return c, nil
}

func (c *JWT) Mint(claims Claims, ttl time.Duration) (string, Claims, error) {
	claims = stamp(claims, c.now(), ttl)

	rc := jwtClaims{gojwt.RegisteredClaims{
		Subject:  claims.Subject,
		IssuedAt: gojwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
		ID:       claims.ID,
	}}
	if claims.ExpiresAt != 0 {
		rc.ExpiresAt = gojwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0))
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, rc).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify checks segments, then the HS256 signature, then the payload,
// then expiry. The library parser decodes claims before the signature,
// so it only reads claims that are already authenticated.
func (c *JWT) Verify(token string) (Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return Claims{}, ErrMalformedToken
	}

	sig, err := c.parser.DecodeSegment(segments[2])
	if err != nil {
		return Claims{}, ErrInvalidSignature
	}
	if err := gojwt.SigningMethodHS256.Verify(segments[0]+"."+segments[1], sig, c.secret); err != nil {
		return Claims{}, ErrInvalidSignature
	}

	var rc jwtClaims
	parsed, _, err := c.parser.ParseUnverified(token, &rc)
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	if parsed.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return Claims{}, ErrInvalidSignature
	}

	claims := Claims{Subject: rc.Subject, ID: rc.ID}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Unix()
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Unix()
	}
	if claims.ExpiresAt != 0 && claims.ExpiresAt < c.now().Unix() {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}
