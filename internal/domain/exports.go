package domain

import (
	interfaces "qchat/internal/domain/interfaces"
	types "qchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	SessionID              = types.SessionID
	Fingerprint            = types.Fingerprint
	Sender                 = types.Sender
	Timestamp              = types.Timestamp
	MessageID              = types.MessageID
	ProtocolConfig         = types.ProtocolConfig
	AliceState             = types.AliceState
	EveState               = types.EveState
	SecurityReport         = types.SecurityReport
	SessionContext         = types.SessionContext
	SessionInfo            = types.SessionInfo
	SessionDetail          = types.SessionDetail
	Health                 = types.Health
	ChatMessage            = types.ChatMessage
	ChannelState           = types.ChannelState
	KeyExchangeRequest     = types.KeyExchangeRequest
	KeyExchangeResponse    = types.KeyExchangeResponse
	SendMessageRequest     = types.SendMessageRequest
	SendMessageResponse    = types.SendMessageResponse
	DecryptMessageRequest  = types.DecryptMessageRequest
	DecryptMessageResponse = types.DecryptMessageResponse
)

// Re-exported constants.
const (
	SenderAlice = types.SenderAlice
	SenderBob   = types.SenderBob

	ChannelConnecting = types.ChannelConnecting
	ChannelOpen       = types.ChannelOpen
	ChannelClosed     = types.ChannelClosed
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	BackendClient    = interfaces.BackendClient
	HandshakeService = interfaces.HandshakeService
	SecureChannel    = interfaces.SecureChannel
	SessionStore     = interfaces.SessionStore
)

// Protocol bounds and defaults.
const (
	MinKeyLength     = types.MinKeyLength
	MaxKeyLength     = types.MaxKeyLength
	MaxQBERThreshold = types.MaxQBERThreshold
)

// DefaultProtocolConfig returns the config used when the user changes nothing.
var DefaultProtocolConfig = types.DefaultProtocolConfig

// Constructors re-exported from the types subpackage.
var (
	ParseSender  = types.ParseSender
	NewTimestamp = types.NewTimestamp
)
