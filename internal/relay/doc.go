// Package relay speaks to the coordinating service that issues sessions and
// stores the broadcast message log.
//
// HTTP is the client; it implements domain.Transport and, for the session
// key exchange, domain.KeyDirectory. Server is an in-memory implementation
// of the same API used by cmd/relay and by tests.
//
// HTTP API
//
//	POST /join               {username}                      -> {success, session_id, user_hash, username}
//	POST /send_message       {session_id, message, recipient} -> {success, message_id}
//	POST /get_messages       {session_id}                    -> {messages: [{id, sender, message, encrypted, timestamp}]}
//	GET  /active_users                                       -> {users: [...]}
//	POST /leave              {session_id}                    -> {success}
//	POST /keys               {session_id, public_key}        -> {success}
//	POST /keys/list          {session_id}                    -> {keys: [{username, public_key}]}
//	POST /key_envelopes      {session_id, recipient, wrapped_key} -> {success}
//	POST /key_envelopes/list {session_id}                    -> {envelopes: [...]}
//
// Non-2xx responses carry {"error": "..."}; 401 means the session is unknown
// or expired. The client maps every failure to a *domain.TransportError, and
// 401s additionally match domain.ErrInvalidSession.
package relay
