// Package auth issues, refreshes, revokes and checks tokens for authgate users.
//
// Subpackages:
//
//   - auth/password: password hashing (hmac-sha256, bcrypt, argon2id) and opaque tokens
//   - auth/token:    signed access token codecs (envelope, jwt)
//   - auth/authctx:  request context propagation of the authenticated identity
//
// Service ties them to the user directory and the token store. Every token
// it returns has its hash persisted first, so a bearer check is a codec
// verification followed by a store lookup:
//
//	svc := auth.NewService(cfg, dir, codec, store, log, auth.WithMetrics(m))
//	sess, err := svc.Login(ctx, auth.LoginInput{Email: e, Password: p}, meta)
//	id, err := svc.Authenticate(ctx, sess.AccessToken)
//
// Configuration:
//
//	auth:
//	  token:
//	    secret: ""            # AUTH_TOKEN_SECRET
//	    format: "envelope"    # or "jwt"
//	  access_token_ttl: "60s"
//	  refresh_token_ttl: "72h"
//	  rotate_refresh_tokens: false
//	  password:
//	    algorithm: "hmac-sha256"
package auth
