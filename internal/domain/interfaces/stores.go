package interfaces

import domaintypes "qchat/internal/domain/types"

// SessionStore persists the most recent session context under a passphrase.
type SessionStore interface {
	SaveSession(passphrase string, session domaintypes.SessionContext) error
	LoadSession(passphrase string) (domaintypes.SessionContext, bool, error)
	ClearSession() error
}
