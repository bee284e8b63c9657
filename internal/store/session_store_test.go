package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"qchat/internal/domain"
)

func newTestStore(t *testing.T) *SessionFileStore {
	t.Helper()
	s := NewSessionFileStore(t.TempDir())
	s.cost = scryptCost{N: 1 << 10, R: 8, P: 1}
	return s
}

func testSession() domain.SessionContext {
	q := 0.02
	return domain.SessionContext{
		SessionID:  "5b2d",
		QuantumKey: "0110100111",
		SecurityReport: domain.SecurityReport{
			Success:        true,
			KeyEstablished: true,
			KeyLength:      256,
			QBER:           &q,
			QBERThreshold:  0.11,
			AliceState:     domain.AliceState{NQubits: 1024, SiftedKeyLength: 510, FinalKeyLength: 256},
		},
		CreatedUTC: 1700000000,
	}
}

func TestSession_SaveLoad_OK(t *testing.T) {
	s := newTestStore(t)
	want := testSession()

	require.NoError(t, s.SaveSession("pass", want))

	got, ok, err := s.LoadSession("pass")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(s.dir, sessionFilename))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSession_WrongPassphrase_Fails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession("correct", testSession()))

	_, ok, err := s.LoadSession("wrong")
	require.ErrorIs(t, err, ErrWrongPassphrase)
	require.False(t, ok)
}

func TestSession_MissingIsNotError(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.LoadSession("pass")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSession_Clear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession("pass", testSession()))
	require.NoError(t, s.ClearSession())
	require.NoError(t, s.ClearSession())

	_, ok, err := s.LoadSession("pass")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSession_EmptyPassphraseRejected(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.SaveSession("", testSession()))
}

func TestSession_FileDoesNotContainKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession("pass", testSession()))

	raw, err := os.ReadFile(filepath.Join(s.dir, sessionFilename))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "0110100111")
}

func TestSession_TamperedFileRejected(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession("pass", testSession()))

	path := filepath.Join(s.dir, sessionFilename)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var e envelope
	require.NoError(t, json.Unmarshal(raw, &e))
	e.Sealed[0] ^= 0xff
	raw, err = json.Marshal(e)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, _, err = s.LoadSession("pass")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestSession_UnknownVersionRejected(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.dir, sessionFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":9}`), 0o600))

	_, _, err := s.LoadSession("pass")
	require.ErrorContains(t, err, "unsupported session file version 9")
}
