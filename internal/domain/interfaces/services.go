package interfaces

import (
	"context"

	domaintypes "qchat/internal/domain/types"
)

// HandshakeService runs the key exchange that opens a session.
type HandshakeService interface {
	ExchangeKey(
		ctx context.Context,
		config domaintypes.ProtocolConfig,
	) (domaintypes.SessionContext, error)
}

// SecureChannel is the persistent per-session connection as seen by the
// navigator.
type SecureChannel interface {
	Connect(ctx context.Context) error
	Send(sender domaintypes.Sender, message string) error
	State() domaintypes.ChannelState
	CanSend() bool
	Messages() []domaintypes.ChatMessage
	Done() <-chan struct{}
	Close() error
}
