// Package crypto holds the few key-handling helpers the client needs.
//
// The client never encrypts or decrypts chat traffic itself; the backend does.
// What remains is presentation and hygiene around the quantum key:
//
//   - Short key fingerprints for display/logging (Fingerprint)
//   - Best-effort memory wiping for sensitive byte slices (Wipe, WipeKey)
package crypto
