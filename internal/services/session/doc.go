// Package session drives the client lifecycle: Idle, Joining, Active,
// Leaving and back to Idle.
//
// A Lifecycle holds at most one live session. Joining creates the session's
// keys, stores and sync engine; leaving destroys all of them, so nothing from
// a finished session stays reachable.
package session
