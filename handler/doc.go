// Package handler maps the authgate HTTP routes onto the auth service.
//
//	POST /api/auth/signup   201 {user, token, refreshToken, expiresAt}
//	POST /api/auth/login    200 {user, token, refreshToken, expiresAt}
//	POST /api/auth/refresh  200 {token, expiresAt}
//	POST /api/auth/logout   204
//	GET  /api/users/me      200 {user}
package handler
