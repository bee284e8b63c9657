package channel

import "qchat/internal/domain"

// NoticeKind classifies a non-fatal notification.
type NoticeKind int

const (
	// NoticeInfo is a plain status line, e.g. "connected".
	NoticeInfo NoticeKind = iota
	// NoticeRemote is an error event sent by the backend.
	NoticeRemote
	// NoticeTransport reports a dropped or failed connection.
	NoticeTransport
	// NoticeMalformed reports an inbound frame that was dropped.
	NoticeMalformed
)

// Notice is a non-fatal notification for the consumer.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Observer receives everything the channel surfaces to its consumer.
// Callbacks come from the channel's read goroutine, or from the goroutine
// calling Connect or Close for the open and closed transitions. They must not
// block for long.
type Observer interface {
	// StateChanged reports every transition. Sending is possible exactly
	// while the state is open.
	StateChanged(state domain.ChannelState)
	SessionInfo(info domain.SessionInfo)
	// MessageReceived delivers a message in encrypted form.
	MessageReceived(id domain.MessageID, msg domain.ChatMessage)
	// MessageDecrypted delivers the same message with its plaintext filled in.
	MessageDecrypted(id domain.MessageID, msg domain.ChatMessage)
	Notice(n Notice)
}

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) StateChanged(domain.ChannelState)                      {}
func (NopObserver) SessionInfo(domain.SessionInfo)                        {}
func (NopObserver) MessageReceived(domain.MessageID, domain.ChatMessage)  {}
func (NopObserver) MessageDecrypted(domain.MessageID, domain.ChatMessage) {}
func (NopObserver) Notice(Notice)                                         {}
