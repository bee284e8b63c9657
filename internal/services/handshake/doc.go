// Package handshake runs the BB84 key exchange against the backend and
// turns its response into a session context or a classified error.
package handshake
