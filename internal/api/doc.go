// Package api serves the pairchat HTTP API.
//
// # Endpoints
//
//	GET  /health                          liveness, "OK"
//	POST /api/conversations               {"peer_id"} -> conversation
//	POST /api/messages                    {"peer_id","text"} -> 201 {"message"}
//	GET  /api/messages/stream?peer_id=X   Server-Sent Events
//
//	GET   /api/profiles/{id}              profile
//	POST  /api/profiles                   caller's profile fields -> 201 profile
//	PATCH /api/profiles/{id}              caller's own profile only
//	POST  /api/posts                      {"text"} -> 201 post
//	PATCH /api/posts/{id}                 {"text"}, author only
//	GET   /api/posts/stream               Server-Sent Events
//	POST  /api/posts/{id}/comments        {"text"} -> 201 comment
//	GET   /api/posts/{id}/comments/stream Server-Sent Events
//
// Everything under /api requires a bearer JWT; the caller is the token's
// subject, and peer_id names the other participant.
//
// A send carrying an Idempotency-Key header is remembered for
// Options.IdempotencyTTL; repeating it returns the original message without
// posting again.
//
// # Streaming
//
// Streams emit "snapshot" events carrying the full ordered list, first on
// connect and again after every change:
//
//	messages  {"conversation_id", "messages": [...]}  oldest first
//	posts     {"posts": [...]}                         newest first
//	comments  {"post_id", "comments": [...]}           oldest first
//
// Posts and comments carry the author's display name; profile edits
// re-send the lists. A terminal failure emits one
// "error" event and closes the stream. Idle streams get a comment line every
// KeepAlive interval.
//
// # Errors
//
// Error replies are JSON {"error": "..."}: 400 for invalid input, 401 for
// missing or bad tokens, 403 for editing another user's profile or post,
// 404 for unknown profiles and posts, 409 for a second profile, 503 once
// the store is closed, 500 for store failures.
package api
