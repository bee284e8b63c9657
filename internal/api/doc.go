// Package api provides an HTTP implementation of the domain.BackendClient
// interface used by qchat.
//
// The backend runs the BB84 simulation, holds the per-session key and does
// all encryption and decryption. This package only speaks its request/response
// contract:
//   - Running a key exchange and receiving the session id, key and report.
//   - Sending a chat message through the REST path.
//   - Decrypting a ciphertext through the REST fallback path.
//   - Listing, fetching and deleting sessions.
//   - Checking backend health.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Requests that cannot complete are returned as
// *domain.TransportError. Non-2xx statuses are returned as *StatusError with
// the HTTP method, path, status text and the backend's "detail" message.
package api
