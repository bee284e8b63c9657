package types

// ProtocolConfig parameterises one BB84 key exchange. It is passed to the
// backend verbatim.
type ProtocolConfig struct {
	KeyLength        uint    `json:"key_length"`
	EnableEve        bool    `json:"enable_eve"`
	EveInterceptProb float64 `json:"eve_intercept_prob"`
	QBERThreshold    float64 `json:"qber_threshold"`
}

// Input ranges offered by the key-exchange form.
const (
	MinKeyLength        = 64
	MaxKeyLength        = 2048
	MaxQBERThreshold    = 0.25
	DefaultKeyLength    = 256
	DefaultEveIntercept = 1.0
	DefaultQBERLimit    = 0.11
)

// DefaultProtocolConfig returns the form defaults.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		KeyLength:        DefaultKeyLength,
		EnableEve:        false,
		EveInterceptProb: DefaultEveIntercept,
		QBERThreshold:    DefaultQBERLimit,
	}
}

// Clamped returns a copy with every field pulled into the range the form
// accepts. It is a presentation helper; the handshake never calls it.
func (c ProtocolConfig) Clamped() ProtocolConfig {
	c.KeyLength = clampUint(c.KeyLength, MinKeyLength, MaxKeyLength)
	c.EveInterceptProb = clampFloat(c.EveInterceptProb, 0, 1)
	c.QBERThreshold = clampFloat(c.QBERThreshold, 0, MaxQBERThreshold)
	return c
}

func clampUint(v, lo, hi uint) uint {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AliceState is the sender-side statistics of a BB84 run.
type AliceState struct {
	NQubits         int `json:"n_qubits"`
	SiftedKeyLength int `json:"sifted_key_length"`
	FinalKeyLength  int `json:"final_key_length"`
}

// Efficiency is the fraction of transmitted qubits that survived into the key.
func (a AliceState) Efficiency() float64 {
	if a.NQubits == 0 {
		return 0
	}
	return float64(a.FinalKeyLength) / float64(a.NQubits)
}

// EveState describes the simulated eavesdropper, when enabled.
type EveState struct {
	NIntercepted         int     `json:"n_intercepted"`
	InterceptProbability float64 `json:"intercept_probability"`
}

// SecurityReport is the backend's account of a key exchange. It is produced
// entirely by the backend and never modified locally.
type SecurityReport struct {
	Success              bool       `json:"success"`
	KeyEstablished       bool       `json:"key_established"`
	KeyLength            uint       `json:"key_length"`
	QBER                 *float64   `json:"qber"`
	QBERThreshold        float64    `json:"qber_threshold"`
	ErrorDetected        bool       `json:"error_detected"`
	EavesdroppingEnabled bool       `json:"eavesdropping_enabled"`
	FailureReason        string     `json:"failure_reason,omitempty"`
	AliceState           AliceState `json:"alice_state"`
	EveState             *EveState  `json:"eve_state,omitempty"`
}

// QBERValue returns the reported QBER and whether one was reported.
func (r SecurityReport) QBERValue() (float64, bool) {
	if r.QBER == nil {
		return 0, false
	}
	return *r.QBER, true
}

// AboveThreshold reports whether the measured QBER exceeds the configured limit.
func (r SecurityReport) AboveThreshold() bool {
	q, ok := r.QBERValue()
	return ok && q > r.QBERThreshold
}

// SessionContext is the result of one successful handshake.
type SessionContext struct {
	SessionID      SessionID      `json:"session_id"`
	QuantumKey     string         `json:"quantum_key"`
	SecurityReport SecurityReport `json:"security_report"`
	CreatedUTC     int64          `json:"created_utc"`
}

// Valid reports whether the context carries a usable session identifier.
func (s SessionContext) Valid() bool { return s.SessionID != "" }

// SessionInfo is the backend's public summary of a session.
type SessionInfo struct {
	SessionID      SessionID   `json:"session_id"`
	KeyFingerprint Fingerprint `json:"key_fingerprint"`
	KeyLength      uint        `json:"key_length"`
	QBER           *float64    `json:"qber"`
	CreatedAt      Timestamp   `json:"created_at"`
	MessageCount   int         `json:"message_count"`
}

// SessionDetail is SessionInfo plus the stored ciphertext transcript.
type SessionDetail struct {
	SessionInfo
	Messages []ChatMessage `json:"messages"`
}

// Health is the backend liveness report.
type Health struct {
	Status         string    `json:"status"`
	Timestamp      Timestamp `json:"timestamp"`
	ActiveSessions int       `json:"active_sessions"`
}
