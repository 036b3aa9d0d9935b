// Package app wires application dependencies for the CLI.
//
// Load resolves a Config from defaults, an optional YAML file, ARGOYA_*
// environment variables and bound flags. New turns it into an App: the
// logger, the metrics pipeline, the relay client and the session Lifecycle,
// exposed through the embedded Wire for commands to use.
package app
