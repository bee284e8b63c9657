// Package store provides file-based persistence for qchat's session state.
//
// SessionFileStore keeps the most recent session context (session id, quantum
// key and security report) so that a chat can be resumed after the process
// exits. The file is sealed with XChaCha20-Poly1305 under a key derived from
// the user's passphrase with scrypt, and written atomically via a temp file
// and rename. All methods are concurrency-safe via internal locking.
package store
