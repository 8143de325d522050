// Package auth is the credential and session authority of the API server.
//
// It hashes and verifies passwords, signs and parses access tokens, checks
// credentials against the user directory, and implements the three-stage
// authorization chain used to gate protected endpoints:
//
//	token -> CurrentUser -> RequireActive -> RequireSuperuser
//
// Each stage takes the previous stage's verified output, so handlers declare
// the minimum privilege they need by choosing where to stop.
//
// Everything here is safe for concurrent use. The only shared state is the
// signing configuration held by TokenService, which is immutable after
// construction.
package auth
