// Package session holds the signed-in user's state for the pairchat CLI.
//
// An Emitter is created once at startup and handed to the code that needs
// it. Subscribe registers an observer, calls it immediately with the current
// state, and returns a dispose func. Update merges a Patch and notifies every
// observer; SignOut resets to the zero State.
//
// FilePersister keeps the state in a JSON file between runs.
package session
