// Package commands defines the argoya CLI and wires dependencies for subcommands.
//
// Commands
//
//   - chat         Join under a throwaway name and chat until /quit, EOF or Ctrl-C
//   - send         Join, broadcast one message and leave
//   - users        List the names currently active on the relay
//   - derive-key   Derive an AES-256 key from a password and salt (PBKDF2)
//
// # Implementation
//
// The root command resolves configuration (defaults, config file, ARGOYA_*
// environment, flags) and builds the app before any subcommand runs, so
// handlers share one relay client, logger and session lifecycle. Logs go to a
// rotated file so they do not interleave with the conversation.
package commands
