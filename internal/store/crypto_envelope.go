package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// envelopeVersion tags the sealed session file layout.
const envelopeVersion = 2

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed file has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted session file")

type scryptCost struct{ N, R, P int }

var defaultScrypt = scryptCost{N: 1 << 15, R: 8, P: 1}

type kdfParams struct {
	Salt []byte `json:"salt"`
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
}

// envelope is the on-disk form of a sealed session.
type envelope struct {
	Version int       `json:"version"`
	KDF     kdfParams `json:"kdf"`
	Nonce   []byte    `json:"nonce"`
	Sealed  []byte    `json:"sealed"`
}

// additionalData binds the ciphertext to the format version and KDF salt.
func (e *envelope) additionalData() []byte {
	return append([]byte(fmt.Sprintf("qchat-session/v%d/", e.Version)), e.KDF.Salt...)
}

func (k kdfParams) derive(passphrase string) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), k.Salt, k.N, k.R, k.P, chacha20poly1305.KeySize)
}

// seal encrypts plaintext under a key stretched from passphrase with
// XChaCha20-Poly1305 and returns the JSON envelope.
func seal(passphrase string, plaintext []byte, cost scryptCost) ([]byte, error) {
	e := envelope{
		Version: envelopeVersion,
		KDF:     kdfParams{Salt: make([]byte, 16), N: cost.N, R: cost.R, P: cost.P},
		Nonce:   make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(e.KDF.Salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(e.Nonce); err != nil {
		return nil, err
	}

	key, err := e.KDF.derive(passphrase)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	e.Sealed = aead.Seal(nil, e.Nonce, plaintext, e.additionalData())
	return json.Marshal(e)
}

// open reverses seal.
func open(passphrase string, raw []byte) ([]byte, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if e.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported session file version %d", e.Version)
	}
	if len(e.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}

	key, err := e.KDF.derive(passphrase)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, e.Nonce, e.Sealed, e.additionalData())
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}
