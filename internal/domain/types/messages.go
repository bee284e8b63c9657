package types

// MessageID identifies one message within a single channel's transcript.
// It is assigned locally in arrival order and is never sent on the wire.
type MessageID uint64

// ChatMessage is an encrypted chat message as delivered by the backend.
// Plaintext stays empty until the matching decryption arrives.
type ChatMessage struct {
	Sender     Sender    `json:"sender"`
	Ciphertext string    `json:"ciphertext"`
	Timestamp  Timestamp `json:"timestamp"`
	Plaintext  string    `json:"plaintext,omitempty"`
}

// Decrypted reports whether the plaintext has been filled in.
func (m ChatMessage) Decrypted() bool { return m.Plaintext != "" }

// CiphertextPreview returns at most n leading characters of the ciphertext.
func (m ChatMessage) CiphertextPreview(n int) string {
	if len(m.Ciphertext) <= n {
		return m.Ciphertext
	}
	return m.Ciphertext[:n] + "..."
}

// KeyExchangeRequest is the body of POST /api/key-exchange.
type KeyExchangeRequest struct {
	UserID string         `json:"user_id"`
	Config ProtocolConfig `json:"config"`
}

// KeyExchangeResponse is the 2xx body of POST /api/key-exchange.
type KeyExchangeResponse struct {
	SessionID  SessionID      `json:"session_id"`
	QuantumKey string         `json:"quantum_key"`
	Result     SecurityReport `json:"bb84_result"`
}

// SendMessageRequest is the body of POST /api/send-message.
type SendMessageRequest struct {
	SessionID SessionID `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
}

// SendMessageResponse acknowledges a REST send.
type SendMessageResponse struct {
	Success          bool         `json:"success"`
	EncryptedMessage *ChatMessage `json:"encrypted_message,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// DecryptMessageRequest is the body of POST /api/decrypt-message.
type DecryptMessageRequest struct {
	SessionID  SessionID `json:"session_id"`
	Ciphertext string    `json:"ciphertext"`
}

// DecryptMessageResponse carries the fallback decryption result.
type DecryptMessageResponse struct {
	Success   bool   `json:"success"`
	Plaintext string `json:"plaintext,omitempty"`
	Error     string `json:"error,omitempty"`
}
