// Package chat resolves private 1:1 conversations and moves messages through them.
//
// # Overview
//
// Every unordered pair of users owns exactly one conversation. The Resolver
// finds that conversation in the store, creating it on first contact, and
// memoizes the answer in a Cache keyed by the canonical pair key:
//
//	r := chat.New(store, chat.NewCache(), logger)
//	conv, err := r.Resolve(ctx, "alice", "bob")
//
// Key operations:
//
//   - Resolve(ctx, sender, receiver): find or create the pair's conversation
//   - SendMessage(ctx, sender, receiver, text): append a message
//   - SubscribeToMessages(ctx, sender, receiver, observer): live ordered list
//
// # Pair Keys
//
// PairKey sorts the two identifiers and joins them with "_", so
// PairKey(a, b) == PairKey(b, a). Identifiers containing the separator are
// rejected as invalid input.
//
// # Resolution
//
//  1. Cache hit: return without touching the store
//  2. Query the store for the pair
//  3. If absent, create it; a duplicate from a concurrent creator means the
//     other side won, so query again
//  4. Cache and return
//
// Concurrent resolutions of the same uncached pair share one store round-trip.
//
// # Errors
//
//   - ErrInvalidInput: empty or malformed identifiers or text
//   - *QueryError: the store failed to read
//   - *WriteError: the store failed to create or append
//
// Live subscription failures are terminal and reach Observer.OnError once.
package chat
