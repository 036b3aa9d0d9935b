// Package store provides the in-memory state of one argoya session.
//
// Nothing here touches disk: every store lives exactly as long as the
// session that owns it and is cleared on leave. All methods are
// concurrency-safe via internal locking.
//
// The package includes:
//   - The deduplicated conversation log (SessionStore)
//   - The active participant list (ParticipantList)
//   - Session keys learned from peers (KeyRing)
package store
