package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"qchat/internal/domain"
)

func TestPrintReport_Secure(t *testing.T) {
	q := 0.02
	var b strings.Builder
	printReport(&b, domain.SessionContext{
		SessionID:  "abc",
		QuantumKey: "0110",
		SecurityReport: domain.SecurityReport{
			Success:       true,
			KeyLength:     4,
			QBER:          &q,
			QBERThreshold: 0.11,
			AliceState:    domain.AliceState{NQubits: 16, SiftedKeyLength: 8, FinalKeyLength: 4},
		},
	})

	out := b.String()
	assert.Contains(t, out, "Session:      abc")
	assert.Contains(t, out, "QBER:         2.00% (threshold 11.00%, within threshold)")
	assert.Contains(t, out, "Efficiency:   25.0% (4 of 16 qubits kept, 8 sifted)")
	assert.Contains(t, out, "Status:       secure key established")
	assert.NotContains(t, out, "0110")
	assert.NotContains(t, out, "Eavesdropper")
}

func TestPrintHandshakeError_ProtocolFailure(t *testing.T) {
	q := 0.25
	err := &domain.ProtocolFailure{
		Reason: "QBER exceeds threshold",
		Report: &domain.SecurityReport{
			QBER:                 &q,
			QBERThreshold:        0.11,
			EavesdroppingEnabled: true,
			FailureReason:        "QBER exceeds threshold",
			EveState:             &domain.EveState{NIntercepted: 12, InterceptProbability: 1},
		},
	}

	var b strings.Builder
	printHandshakeError(&b, err)

	out := b.String()
	assert.Contains(t, out, "failed the security check: QBER exceeds threshold")
	assert.Contains(t, out, "EXCEEDS threshold")
	assert.Contains(t, out, "12 qubits intercepted (p=1.00), detected")
	assert.Contains(t, out, "Status:       FAILED: QBER exceeds threshold")
	assert.Contains(t, out, "retry")
}

func TestPrintHandshakeError_Transport(t *testing.T) {
	var b strings.Builder
	printHandshakeError(&b, &domain.HandshakeError{Err: errors.New("connection refused")})

	assert.Contains(t, b.String(), "could not complete")
	assert.Contains(t, b.String(), "connection refused")
	assert.NotContains(t, b.String(), "security check")
}

func TestFormatMessage(t *testing.T) {
	msg := domain.ChatMessage{Sender: domain.SenderBob, Ciphertext: strings.Repeat("a", 40)}
	assert.Equal(t, "[--:--:--] bob   (encrypted) "+strings.Repeat("a", 32)+"...", formatMessage(msg))

	msg.Plaintext = "hi"
	assert.Equal(t, "[--:--:--] bob   hi", formatMessage(msg))
}
