// Package navigator holds the top-level screen state machine: Home,
// KeyExchange, Chat and About. It is the only owner of the active session
// context and of the secure channel bound to it.
package navigator
