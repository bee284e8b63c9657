package commands

import (
	"errors"
	"fmt"
	"io"

	"qchat/internal/crypto"
	"qchat/internal/domain"
	"qchat/internal/services/handshake"
)

const previewLen = 32

// printReport renders the outcome of a key exchange.
func printReport(w io.Writer, sess domain.SessionContext) {
	r := sess.SecurityReport
	a := handshake.Assess(r)

	if sess.SessionID != "" {
		fmt.Fprintf(w, "Session:      %s\n", sess.SessionID)
	}
	if sess.QuantumKey != "" {
		fmt.Fprintf(w, "Key:          %d bits, fingerprint %s\n", r.KeyLength, crypto.Fingerprint(sess.QuantumKey))
	}
	if a.HasQBER {
		verdict := "within threshold"
		if a.Margin < 0 {
			verdict = "EXCEEDS threshold"
		}
		fmt.Fprintf(w, "QBER:         %.2f%% (threshold %.2f%%, %s)\n", a.QBER*100, a.Threshold*100, verdict)
	}
	if r.EavesdroppingEnabled {
		line := "simulated"
		if r.EveState != nil {
			line = fmt.Sprintf("simulated, %d qubits intercepted (p=%.2f)", a.Intercepted, r.EveState.InterceptProbability)
		}
		if a.EavesdropperDetected {
			line += ", detected"
		}
		fmt.Fprintf(w, "Eavesdropper: %s\n", line)
	}
	if r.AliceState.NQubits > 0 {
		fmt.Fprintf(w, "Efficiency:   %.1f%% (%d of %d qubits kept, %d sifted)\n",
			a.Efficiency*100, r.AliceState.FinalKeyLength, r.AliceState.NQubits, r.AliceState.SiftedKeyLength)
	}
	if a.Secure {
		fmt.Fprintln(w, "Status:       secure key established")
	} else {
		reason := r.FailureReason
		if reason == "" {
			reason = "no key established"
		}
		fmt.Fprintf(w, "Status:       FAILED: %s\n", reason)
	}
}

// printHandshakeError distinguishes a protocol failure from a transport one.
func printHandshakeError(w io.Writer, err error) {
	var pf *domain.ProtocolFailure
	if errors.As(err, &pf) {
		fmt.Fprintf(w, "Key exchange failed the security check: %s\n", pf.Reason)
		if pf.Report != nil {
			printReport(w, domain.SessionContext{SecurityReport: *pf.Report})
		}
		fmt.Fprintln(w, "You can retry with the same or adjusted settings.")
		return
	}
	fmt.Fprintf(w, "Key exchange could not complete: %v\n", err)
}

// formatMessage renders one transcript line.
func formatMessage(msg domain.ChatMessage) string {
	ts := "--:--:--"
	if !msg.Timestamp.IsZero() {
		ts = msg.Timestamp.Local().Format("15:04:05")
	}
	if msg.Decrypted() {
		return fmt.Sprintf("[%s] %-5s %s", ts, msg.Sender, msg.Plaintext)
	}
	return fmt.Sprintf("[%s] %-5s (encrypted) %s", ts, msg.Sender, msg.CiphertextPreview(previewLen))
}

func printSessionInfo(w io.Writer, info domain.SessionInfo) {
	fmt.Fprintf(w, "Session:      %s\n", info.SessionID)
	if info.KeyFingerprint != "" {
		fmt.Fprintf(w, "Fingerprint:  %s\n", info.KeyFingerprint)
	}
	fmt.Fprintf(w, "Key length:   %d bits\n", info.KeyLength)
	if info.QBER != nil {
		fmt.Fprintf(w, "QBER:         %.2f%%\n", *info.QBER*100)
	}
	if !info.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:      %s\n", info.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Messages:     %d\n", info.MessageCount)
}
