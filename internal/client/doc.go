// Package client is the HTTP client the pairchat CLI uses to reach a server.
//
//	c := client.New("http://127.0.0.1:8080", token)
//	msg, err := c.Send(ctx, "bob", "hi")
//	err = c.Watch(ctx, "bob", func(snap api.SnapshotEvent) error {
//		// snap.Messages is the full ordered list
//		return nil
//	})
//
// Profiles, posts, and comments have matching calls, and WatchPosts and
// WatchComments stream those lists the same way Watch streams messages.
//
// Error replies surface as *StatusError, or ErrUnauthorized for 401.
package client
