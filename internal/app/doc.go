// Package app wires application dependencies for the CLI.
//
// It loads the TOML configuration, builds the logger, the backend client, the
// handshake service, the channel dialer, the session store and the metrics
// registry, exposing them via the Wire struct for commands to use. App ties a
// navigator to session persistence for the interactive chat.
package app
