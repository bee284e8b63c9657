package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"qchat/internal/domain"
)

// EventType is the "type" field of an inbound frame.
type EventType string

const (
	EventSessionInfo      EventType = "session_info"
	EventMessageHistory   EventType = "message_history"
	EventNewMessage       EventType = "new_message"
	EventDecryptedMessage EventType = "decrypted_message"
	EventError            EventType = "error"
)

// Event is one decoded inbound frame. The concrete type is one of
// SessionInfoEvent, MessageHistoryEvent, NewMessageEvent,
// DecryptedMessageEvent or ErrorEvent.
type Event interface {
	Type() EventType
	isEvent()
}

// SessionInfoEvent is informational and changes no state.
type SessionInfoEvent struct {
	Info domain.SessionInfo
}

// MessageHistoryEvent carries the stored transcript, oldest first. It is
// delivered once, right after the channel opens.
type MessageHistoryEvent struct {
	Messages []domain.ChatMessage
}

// NewMessageEvent carries one newly arrived message.
type NewMessageEvent struct {
	Message domain.ChatMessage
}

// DecryptedMessageEvent answers an earlier decrypt_message command.
type DecryptedMessageEvent struct {
	Ciphertext string `json:"ciphertext"`
	Plaintext  string `json:"plaintext"`
}

// ErrorEvent is a non-fatal error reported by the backend.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (SessionInfoEvent) Type() EventType      { return EventSessionInfo }
func (MessageHistoryEvent) Type() EventType   { return EventMessageHistory }
func (NewMessageEvent) Type() EventType       { return EventNewMessage }
func (DecryptedMessageEvent) Type() EventType { return EventDecryptedMessage }
func (ErrorEvent) Type() EventType            { return EventError }

func (SessionInfoEvent) isEvent()      {}
func (MessageHistoryEvent) isEvent()   {}
func (NewMessageEvent) isEvent()       {}
func (DecryptedMessageEvent) isEvent() {}
func (ErrorEvent) isEvent()            {}

var (
	errUnknownType   = errors.New("unknown event type")
	errNoCiphertext  = errors.New("message without ciphertext")
	errMissingFields = errors.New("missing data")
)

type inboundEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses one inbound frame. Any failure is returned as a
// *domain.MalformedEventError.
func DecodeEvent(raw []byte) (Event, error) {
	ev, err := decodeEvent(raw)
	if err != nil {
		return nil, &domain.MalformedEventError{Raw: raw, Err: err}
	}
	return ev, nil
}

func decodeEvent(raw []byte) (Event, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, errors.New("missing type")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%s: %w", env.Type, errMissingFields)
	}

	switch env.Type {
	case EventSessionInfo:
		var info domain.SessionInfo
		if err := json.Unmarshal(env.Data, &info); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		return SessionInfoEvent{Info: info}, nil

	case EventMessageHistory:
		var msgs []domain.ChatMessage
		if err := json.Unmarshal(env.Data, &msgs); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		for i, m := range msgs {
			if m.Ciphertext == "" {
				return nil, fmt.Errorf("%s[%d]: %w", env.Type, i, errNoCiphertext)
			}
		}
		return MessageHistoryEvent{Messages: msgs}, nil

	case EventNewMessage:
		var m domain.ChatMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		if m.Ciphertext == "" {
			return nil, fmt.Errorf("%s: %w", env.Type, errNoCiphertext)
		}
		return NewMessageEvent{Message: m}, nil

	case EventDecryptedMessage:
		var d DecryptedMessageEvent
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		if d.Ciphertext == "" {
			return nil, fmt.Errorf("%s: %w", env.Type, errNoCiphertext)
		}
		return d, nil

	case EventError:
		var e ErrorEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Type, err)
		}
		if e.Message == "" {
			e.Message = "unknown error"
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownType, env.Type)
}

// CommandType is the "type" field of an outbound frame.
type CommandType string

const (
	CommandSendMessage    CommandType = "send_message"
	CommandDecryptMessage CommandType = "decrypt_message"
)

// Command is one outbound frame: SendMessageCommand or DecryptMessageCommand.
type Command interface {
	CommandType() CommandType
	isCommand()
}

// SendMessageCommand asks the backend to encrypt and broadcast a message.
type SendMessageCommand struct {
	Sender  domain.Sender
	Message string
}

// DecryptMessageCommand asks the backend to decrypt one ciphertext.
type DecryptMessageCommand struct {
	Ciphertext string
}

func (SendMessageCommand) CommandType() CommandType    { return CommandSendMessage }
func (DecryptMessageCommand) CommandType() CommandType { return CommandDecryptMessage }

func (SendMessageCommand) isCommand()    {}
func (DecryptMessageCommand) isCommand() {}

// MarshalJSON flattens the command into {"type": ..., fields...}.
func (c SendMessageCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    CommandType   `json:"type"`
		Sender  domain.Sender `json:"sender"`
		Message string        `json:"message"`
	}{CommandSendMessage, c.Sender, c.Message})
}

// MarshalJSON flattens the command into {"type": ..., fields...}.
func (c DecryptMessageCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       CommandType `json:"type"`
		Ciphertext string      `json:"ciphertext"`
	}{CommandDecryptMessage, c.Ciphertext})
}

// EncodeCommand serialises cmd for the wire.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, errors.New("nil command")
	}
	return json.Marshal(cmd)
}
