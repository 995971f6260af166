// Package cli provides the interactive Tzikbal command-line client.
//
// It wires configuration, the HTTP API client and a small REPL. A background
// watcher pings the server and flips the prompt between online and offline.
//
// Commands:
//   - register / login / logout
//   - profile shows the signed-in account
//   - upload stores a local file and prints its URL
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
