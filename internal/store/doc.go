// Package store provides persistent storage for pairchat conversations,
// profiles, posts and comments.
//
// # Architecture
//
// Store is the single interface the rest of the module depends on. Two
// implementations exist:
//
//   - SQLiteStore: modernc.org/sqlite backed, used by the server
//   - MockStore: in-memory, counts calls and injects failures for tests
//
// Both share the live Subscription machinery in subscription.go, which
// listens to one or more topics on an in-process feed.Broadcaster and
// re-reads the ordered list whenever one of them fires:
//
//   - messages: "conversation:<id>"
//   - posts: "posts" and "profiles"
//   - comments: "comments:<post id>" and "profiles"
//
// Profile changes re-deliver post and comment lists so author names shown
// next to them stay current.
//
// # Data Models
//
//   - Conversation: one per unordered participant pair, participants stored sorted
//   - Message: text with a sender and a server-assigned timestamp and sequence
//   - Profile: display name, bio, career, email and photo URL keyed by user ID
//   - Post: public text by one author, editable; listed newest first
//   - Comment: reply to one post; listed oldest first
//
// # Uniqueness
//
// The pair columns carry a UNIQUE index, so CreateConversation is a
// create-if-absent. Callers that lose a race get ErrDuplicateConversation and
// should look the conversation up again.
//
// # Ordering
//
// AppendMessage assigns timestamps from the store clock, never earlier than
// the previous message in the same conversation, plus a per-conversation
// sequence number. ListMessages orders by timestamp then sequence.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as fixed-width RFC 3339 text with nanoseconds.
//
// # Error Handling
//
//   - ErrNotFound: no conversation for the pair, or unknown conversation,
//     profile or post ID
//   - ErrDuplicateConversation: the pair already has a conversation
//   - ErrDuplicateProfile: the user already has a profile
//   - ErrClosed: the store was closed
package store
