// Package channel implements the live, bidirectional connection bound to one
// key-exchange session.
//
// A Channel dials /ws/{session_id}, receives session_info, message_history,
// new_message, decrypted_message and error events, and sends send_message and
// decrypt_message commands. Every received message is surfaced first in
// encrypted form and then again once its decrypted_message arrives; the
// pairing is done by a Table keyed on ciphertext, because the backend echoes
// only the ciphertext back.
//
// The Dialer and Conn interfaces keep the state machine independent of the
// transport. WebSocketDialer is the gorilla/websocket implementation.
package channel
