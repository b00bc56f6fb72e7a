package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth"
	"github.com/kbukum/authgate/auth/authctx"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/tokenstore"
	"github.com/kbukum/authgate/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	signupIn   auth.SignupInput
	loginIn    auth.LoginInput
	meta       tokenstore.Meta
	logoutArgs [2]string
	err        error
}

func (f *fakeService) session(email string) *auth.Session {
	return &auth.Session{
		User:         &users.User{ID: "u-1", Email: email},
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC),
	}
}

func (f *fakeService) Signup(_ context.Context, in auth.SignupInput, meta tokenstore.Meta) (*auth.Session, error) {
	f.signupIn, f.meta = in, meta
	if f.err != nil {
		return nil, f.err
	}
	return f.session(in.Email), nil
}

func (f *fakeService) Login(_ context.Context, in auth.LoginInput, meta tokenstore.Meta) (*auth.Session, error) {
	f.loginIn, f.meta = in, meta
	if f.err != nil {
		return nil, f.err
	}
	return f.session(in.Email), nil
}

func (f *fakeService) Refresh(_ context.Context, rt string, meta tokenstore.Meta) (*auth.Refreshed, error) {
	f.meta = meta
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Refreshed{AccessToken: "access-2", ExpiresAt: time.Date(2026, 3, 1, 0, 2, 0, 0, time.UTC)}, nil
}

func (f *fakeService) Logout(_ context.Context, refreshToken, accessToken string) error {
	f.logoutArgs = [2]string{refreshToken, accessToken}
	return f.err
}

func newRouter(svc AuthService, g Gates) *gin.Engine {
	r := gin.New()
	Register(r.Group("/api"), NewAuthHandler(svc), g)
	return r
}

func post(r http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestSignup(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, Gates{})

	rr := post(r, "/api/auth/signup", `{"email":"a@b.com","name":"Ann","password":"Password123!"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		User         users.User `json:"user"`
		Token        string     `json:"token"`
		RefreshToken string     `json:"refreshToken"`
		ExpiresAt    time.Time  `json:"expiresAt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Email != "a@b.com" || body.Token != "access" || body.RefreshToken != "refresh" {
		t.Errorf("unexpected body %+v", body)
	}
	if body.ExpiresAt.IsZero() {
		t.Error("expected expiresAt")
	}
	if svc.signupIn.Name != "Ann" || svc.signupIn.Password != "Password123!" {
		t.Errorf("input not forwarded: %+v", svc.signupIn)
	}
	if svc.meta.UserAgent != "test-agent" || svc.meta.IP == "" {
		t.Errorf("request meta not forwarded: %+v", svc.meta)
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		code apperrors.ErrorCode
	}{
		{"invalid json", "/api/auth/login", `{"email":`, apperrors.ErrCodeInvalidInput},
		{"empty body", "/api/auth/refresh", ``, apperrors.ErrCodeMissingField},
		{"missing refresh token", "/api/auth/logout", `{}`, apperrors.ErrCodeMissingField},
		{"missing password", "/api/auth/login", `{"email":"a@b.com"}`, apperrors.ErrCodeMissingField},
		{"several missing", "/api/auth/signup", `{"email":"a@b.com"}`, apperrors.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			rr := post(newRouter(svc, Gates{}), tc.path, tc.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if body := decodeError(t, rr); body.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, body.Code)
			}
		})
	}
}

func TestLogin_ServiceError(t *testing.T) {
	svc := &fakeService{err: apperrors.InvalidCredentials()}
	rr := post(newRouter(svc, Gates{}), "/api/auth/login", `{"email":"a@b.com","password":"nope"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != apperrors.ErrCodeUnauthorized || body.Message != "Invalid credentials" {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{}
	rr := post(newRouter(svc, Gates{}), "/api/auth/refresh", `{"refreshToken":"refresh"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["token"] != "access-2" {
		t.Errorf("unexpected token %v", body["token"])
	}
	if _, ok := body["refreshToken"]; ok {
		t.Error("refreshToken must be omitted without rotation")
	}
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		access string
	}{
		{"with bearer", map[string]string{"Authorization": "Bearer access"}, "access"},
		{"without bearer", nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			rr := post(newRouter(svc, Gates{}), "/api/auth/logout", `{"refreshToken":"refresh"}`, tc.header)
			if rr.Code != http.StatusNoContent {
				t.Fatalf("expected 204, got %d", rr.Code)
			}
			if rr.Body.Len() != 0 {
				t.Errorf("expected empty body, got %q", rr.Body.String())
			}
			if svc.logoutArgs != [2]string{"refresh", tc.access} {
				t.Errorf("unexpected logout args %v", svc.logoutArgs)
			}
		})
	}
}

func TestRegister_Gates(t *testing.T) {
	var calls []string
	gate := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			calls = append(calls, name)
			c.Next()
		}
	}
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	r := newRouter(&fakeService{}, Gates{
		AuthLimit:   gate("limit"),
		ProofOfWork: gate("pow"),
		RequireAuth: deny,
	})

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/api/auth/signup", `{"email":"a@b.com","name":"A","password":"p"}`, "limit,pow"},
		{"/api/auth/login", `{"email":"a@b.com","password":"p"}`, "limit,pow"},
		{"/api/auth/refresh", `{"refreshToken":"r"}`, "limit"},
		{"/api/auth/logout", `{"refreshToken":"r"}`, "limit"},
	}
	for _, tc := range tests {
		calls = nil
		post(r, tc.path, tc.body, nil)
		if got := strings.Join(calls, ","); got != tc.want {
			t.Errorf("%s: expected gates %q, got %q", tc.path, tc.want, got)
		}
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/me", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected /users/me behind RequireAuth, got %d", rr.Code)
	}
}

func TestMe(t *testing.T) {
	withUser := func(c *gin.Context) {
		ctx := authctx.WithIdentity(c.Request.Context(), &authctx.Identity{User: &users.User{ID: "u-1", Email: "a@b.com"}})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}

	r := newRouter(&fakeService{}, Gates{RequireAuth: withUser})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/me", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body meResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User == nil || body.User.ID != "u-1" {
		t.Errorf("unexpected user %+v", body.User)
	}

	bare := newRouter(&fakeService{}, Gates{})
	rr = httptest.NewRecorder()
	bare.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/me", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", rr.Code)
	}
}
