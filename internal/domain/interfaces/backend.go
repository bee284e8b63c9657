package interfaces

import (
	"context"

	domaintypes "qchat/internal/domain/types"
)

// BackendClient is how we talk to the quantum chat backend, all with context.
type BackendClient interface {
	KeyExchange(
		ctx context.Context,
		request domaintypes.KeyExchangeRequest,
	) (domaintypes.KeyExchangeResponse, error)

	SendMessage(
		ctx context.Context,
		sessionID domaintypes.SessionID,
		sender domaintypes.Sender,
		message string,
	) (domaintypes.ChatMessage, error)
	DecryptMessage(
		ctx context.Context,
		sessionID domaintypes.SessionID,
		ciphertext string,
	) (string, error)

	ListSessions(ctx context.Context) ([]domaintypes.SessionInfo, error)
	GetSession(ctx context.Context, sessionID domaintypes.SessionID) (domaintypes.SessionDetail, error)
	DeleteSession(ctx context.Context, sessionID domaintypes.SessionID) error
	Health(ctx context.Context) (domaintypes.Health, error)
}
