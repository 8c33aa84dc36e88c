// Package auth provides bearer-token authentication for the submission API.
//
// Clients present an HS256 JWT issued by this service (see the token
// subcommand). The subject claim names the client and is attached to the
// request context:
//
//	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
//	mux.Handle("/api/", auth.HTTPAuthMiddleware(verifier, logger)(api))
//
//	clientID := auth.ClientFromContext(r.Context())
//
// Authentication is enabled only when auth.jwt_secret is configured.
package auth
