// Package auth verifies who is calling the pairchat API.
//
// # Tokens
//
// Callers present HS256 JWTs signed with the configured auth.jwt_secret.
// The user ID travels in the "sub" claim; "iss" must be "pairchat" and
// "exp" is required. pairchat only verifies and issues tokens for local use;
// it does not manage accounts or passwords.
//
//	v, err := auth.NewJWTVerifier(secret)
//	token, err := v.Generate("alice", "alice@example.com", 24*time.Hour)
//	id, err := v.Verify(token)
//
// # HTTP
//
// HTTPAuthMiddleware rejects requests without a valid bearer token with 401
// and a JSON body, and otherwise attaches an AuthContext that handlers read
// with FromContext.
package auth
