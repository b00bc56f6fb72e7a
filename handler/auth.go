package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/server"
	"github.com/kbukum/authgate/server/middleware"
	"github.com/kbukum/authgate/tokenstore"
	"github.com/kbukum/authgate/validation"
)

// AuthService is the part of *auth.Service the handlers call.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput, meta tokenstore.Meta) (*auth.Session, error)
	Login(ctx context.Context, in auth.LoginInput, meta tokenstore.Meta) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string, meta tokenstore.Meta) (*auth.Refreshed, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
}

var _ AuthService = (*auth.Service)(nil)

type signupRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler creates the auth handlers.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Signup(c.Request.Context(), auth.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	}, requestMeta(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, sess)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, requestMeta(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, sess)
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// Logout handles POST /api/auth/logout. A bearer token, when present, is
// revoked along with the refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	bearer, _ := middleware.BearerToken(c.Request)
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken, bearer); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

// bind decodes the JSON body into dst and validates it. An empty body
// decodes as an empty object. On failure the error response is written
// and false returned.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		server.RespondWithError(c, apperrors.Validation("Request body must be valid JSON"))
		return false
	}
	if err := validation.Validate(dst); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}

func requestMeta(c *gin.Context) tokenstore.Meta {
	return tokenstore.Meta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}
