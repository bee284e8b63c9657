// Package commands defines the qchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init            Write a default config file
//   - key-exchange    Run a BB84 key exchange and print the security report
//   - chat            Key exchange, then chat over the secure channel
//   - send            Send a message over REST
//   - sessions        List active sessions
//   - session         Show one session
//   - history         Print and decrypt a session's transcript
//   - decrypt         Decrypt one ciphertext over REST
//   - delete-session  Delete a session
//   - health          Check the backend
//   - fingerprint     Print the saved session's key fingerprint
//
// # Implementation
//
// The root command loads the TOML config, applies flag overrides, and builds
// the logger and dependency graph (backend client, handshake service,
// channel dialer, session store, metrics) before any subcommand runs.
package commands
