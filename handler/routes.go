package handler

import (
	"github.com/gin-gonic/gin"
)

// Gates are the route-level middleware. Nil gates are skipped.
type Gates struct {
	// AuthLimit rate-limits every /api/auth route.
	AuthLimit gin.HandlerFunc
	// ProofOfWork guards signup and login.
	ProofOfWork gin.HandlerFunc
	// RequireAuth guards protected routes.
	RequireAuth gin.HandlerFunc
}

// Register mounts the auth and user routes on api, normally the /api group.
func Register(api gin.IRouter, h *AuthHandler, g Gates) {
	authGroup := api.Group("/auth", chain(g.AuthLimit)...)
	authGroup.POST("/signup", chain(g.ProofOfWork, h.Signup)...)
	authGroup.POST("/login", chain(g.ProofOfWork, h.Login)...)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)

	api.GET("/users/me", chain(g.RequireAuth, Me)...)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
