package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// headerSegment is base64url({"alg":"HS256","typ":"JWT"}).
var headerSegment = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Envelope is an HMAC-SHA256 Codec with no third-party dependencies.
type Envelope struct {
	secret []byte
	now    func() time.Time
}

var _ Codec = (*Envelope)(nil)

// NewEnvelope creates an envelope codec.
func NewEnvelope(secret string, opts ...Option) (*Envelope, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	o := buildOptions(opts)
	return &Envelope{secret: []byte(secret), now: o.now}, nil
}

func (e *Envelope) Mint(claims Claims, ttl time.Duration) (string, Claims, error) {
	claims = stamp(claims, e.now(), ttl)
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: encode payload: %w", err)
	}
	signingInput := headerSegment + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + e.sign(signingInput), claims, nil
}

// Verify checks segments, then signature, then payload, then expiry.
func (e *Envelope) Verify(token string) (Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return Claims{}, ErrMalformedToken
	}

	got, err := base64.RawURLEncoding.DecodeString(segments[2])
	if err != nil {
		return Claims{}, ErrInvalidSignature
	}
	want := e.mac(segments[0] + "." + segments[1])
	if !hmac.Equal(got, want) {
		return Claims{}, ErrInvalidSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, ErrMalformedToken
	}

	if claims.ExpiresAt != 0 && claims.ExpiresAt < e.now().Unix() {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func (e *Envelope) mac(input string) []byte {
	m := hmac.New(sha256.New, e.secret)
	m.Write([]byte(input))
	return m.Sum(nil)
}

func (e *Envelope) sign(input string) string {
	return base64.RawURLEncoding.EncodeToString(e.mac(input))
}
