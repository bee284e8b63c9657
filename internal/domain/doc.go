// Package domain defines core data models, interfaces and the error taxonomy
// shared across the client. It contains plain types (wire/state), contracts
// (interfaces) and error values only.
package domain
