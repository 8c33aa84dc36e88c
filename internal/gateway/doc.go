// Package gateway wires the submission-gateway server together.
//
// # Overview
//
// Gateway owns the window store, the duplicate checker, the audit recorder
// and the HTTP server, and shuts them down in that reverse order:
//
//	type Gateway struct {
//	    config     *config.Config
//	    store      window.Store
//	    checker    *dedupe.Checker
//	    recorder   audit.Recorder
//	    httpServer *http.Server
//	}
//
// # HTTP API
//
//   - POST /api/submissions/check - Report whether an instance id is new for a form
//   - POST /api/submissions - Record an accepted submission in the audit log
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (pings the window store)
//
// Check responses:
//
//	200 {"new": true, "form_id": "abc", "instance_id": "uuid:1"}
//	400 {"error": "..."}   missing form_id or instance_id
//	503 {"error": "..."}   window store unavailable
//
// The /api/ routes require a bearer token when auth.jwt_secret is set. Every
// response carries an X-Request-ID header.
//
// # Store Selection
//
// store.backend picks redis, sqlite or memory. With environment "test" the
// redis store selects redis.test_db instead of redis.db.
package gateway
