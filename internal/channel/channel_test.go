package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qchat/internal/domain"
	"qchat/internal/instrument"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case b, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-f.closed:
		return nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(b []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), b...))
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(s string) { f.in <- []byte(s) }

func (f *fakeConn) frames() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]string, 0, len(f.written))
	for _, b := range f.written {
		var m map[string]string
		if err := json.Unmarshal(b, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(context.Context, domain.SessionID) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type recorder struct {
	mu        sync.Mutex
	states    []domain.ChannelState
	infos     []domain.SessionInfo
	received  []domain.MessageID
	decrypted map[domain.MessageID]string
	notices   []Notice
}

func newRecorder() *recorder {
	return &recorder{decrypted: make(map[domain.MessageID]string)}
}

func (r *recorder) StateChanged(s domain.ChannelState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) SessionInfo(info domain.SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, info)
}

func (r *recorder) MessageReceived(id domain.MessageID, _ domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, id)
}

func (r *recorder) MessageDecrypted(id domain.MessageID, msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decrypted[id] = msg.Plaintext
}

func (r *recorder) Notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) noticeKinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NoticeKind, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recorder) decryptedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decrypted)
}

// metric returns the value of an unlabelled counter or gauge, or 0 when it
// has not been touched.
func metric(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		pm := mf.GetMetric()[0]
		if c := pm.GetCounter(); c != nil {
			return c.GetValue()
		}
		return pm.GetGauge().GetValue()
	}
	return 0
}

func newTestChannel(t *testing.T) (*Channel, *fakeConn, *recorder, *prometheus.Registry) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	reg := prometheus.NewRegistry()
	m, err := instrument.New(reg)
	require.NoError(t, err)

	conn := newFakeConn()
	rec := newRecorder()
	ch := New("session-1234567890", &fakeDialer{conn: conn}, Options{
		Observer: rec,
		Log:      logger,
		Metrics:  m,
	})
	t.Cleanup(func() { _ = ch.Close() })
	return ch, conn, rec, reg
}

func connect(t *testing.T, ch *Channel) {
	t.Helper()
	require.NoError(t, ch.Connect(context.Background()))
	require.Equal(t, domain.ChannelOpen, ch.State())
}

func TestHistoryIsRequestedInOrderAndResolvedOutOfOrder(t *testing.T) {
	ch, conn, rec, _ := newTestChannel(t)
	connect(t, ch)

	conn.push(`{"type":"session_info","data":{"session_id":"session-1234567890","key_length":256,"message_count":2}}`)
	conn.push(`{"type":"message_history","data":[{"sender":"alice","ciphertext":"c1","timestamp":"2024-05-01T10:00:00"},{"sender":"bob","ciphertext":"c2","timestamp":"2024-05-01T10:00:01"}]}`)

	require.Eventually(t, func() bool { return len(conn.frames()) == 2 }, waitFor, tick)
	frames := conn.frames()
	assert.Equal(t, map[string]string{"type": "decrypt_message", "ciphertext": "c1"}, frames[0])
	assert.Equal(t, map[string]string{"type": "decrypt_message", "ciphertext": "c2"}, frames[1])

	msgs := ch.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "c1", msgs[0].Ciphertext)
	assert.Equal(t, "c2", msgs[1].Ciphertext)
	assert.False(t, msgs[0].Decrypted())
	assert.False(t, msgs[1].Decrypted())
	assert.Equal(t, 2, ch.Pending())

	conn.push(`{"type":"decrypted_message","data":{"ciphertext":"c2","plaintext":"hi bob"}}`)
	require.Eventually(t, func() bool { return rec.decryptedCount() == 1 }, waitFor, tick)
	assert.Equal(t, 1, ch.Pending())

	msgs = ch.Messages()
	assert.Empty(t, msgs[0].Plaintext)
	assert.Equal(t, "hi bob", msgs[1].Plaintext)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []domain.MessageID{0, 1}, rec.received)
	assert.Equal(t, map[domain.MessageID]string{1: "hi bob"}, rec.decrypted)
	require.Len(t, rec.infos, 1)
	assert.Equal(t, 2, rec.infos[0].MessageCount)
}

func TestSendWhileConnectingIsRejected(t *testing.T) {
	ch, conn, _, _ := newTestChannel(t)

	require.Equal(t, domain.ChannelConnecting, ch.State())
	require.False(t, ch.CanSend())

	err := ch.Send(domain.SenderAlice, "hello")
	require.ErrorIs(t, err, domain.ErrChannelNotReady)
	assert.Empty(t, conn.frames())
	assert.Equal(t, domain.ChannelConnecting, ch.State())
}

func TestSendWritesCommand(t *testing.T) {
	ch, conn, _, reg := newTestChannel(t)
	connect(t, ch)

	require.True(t, ch.CanSend())
	require.NoError(t, ch.Send(domain.SenderBob, "  hello alice  "))
	require.Equal(t, []map[string]string{
		{"type": "send_message", "sender": "bob", "message": "hello alice"},
	}, conn.frames())
	assert.Equal(t, 1.0, metric(t, reg, "qchat_send_message_commands_total"))
}

func TestSendValidation(t *testing.T) {
	ch, conn, _, _ := newTestChannel(t)
	connect(t, ch)

	require.ErrorIs(t, ch.Send("eve", "hi"), domain.ErrInvalidSender)
	require.ErrorIs(t, ch.Send(domain.SenderAlice, "   "), ErrEmptyMessage)
	assert.Empty(t, conn.frames())
}

func TestDuplicateCiphertextSingleRequest(t *testing.T) {
	ch, conn, rec, _ := newTestChannel(t)
	connect(t, ch)

	conn.push(`{"type":"new_message","data":{"sender":"alice","ciphertext":"dup","timestamp":"2024-05-01T10:00:00"}}`)
	conn.push(`{"type":"new_message","data":{"sender":"bob","ciphertext":"dup","timestamp":"2024-05-01T10:00:01"}}`)
	require.Eventually(t, func() bool { return len(ch.Messages()) == 2 }, waitFor, tick)
	assert.Len(t, conn.frames(), 1)
	assert.Equal(t, 1, ch.Pending())

	conn.push(`{"type":"decrypted_message","data":{"ciphertext":"dup","plaintext":"same"}}`)
	require.Eventually(t, func() bool { return rec.decryptedCount() == 2 }, waitFor, tick)
	for _, msg := range ch.Messages() {
		assert.Equal(t, "same", msg.Plaintext)
	}
	assert.Equal(t, 0, ch.Pending())
}

func TestUnmatchedDecryptionIgnored(t *testing.T) {
	ch, conn, rec, reg := newTestChannel(t)
	connect(t, ch)

	conn.push(`{"type":"decrypted_message","data":{"ciphertext":"ghost","plaintext":"boo"}}`)
	require.Eventually(t, func() bool { return metric(t, reg, "qchat_decrypt_responses_unmatched_total") == 1 }, waitFor, tick)
	assert.Empty(t, ch.Messages())
	assert.Equal(t, 0, rec.decryptedCount())
	assert.Equal(t, domain.ChannelOpen, ch.State())
}

func TestMalformedFrameKeepsChannelOpen(t *testing.T) {
	ch, conn, rec, reg := newTestChannel(t)
	connect(t, ch)

	conn.push(`not json at all`)
	conn.push(`{"type":"new_message","data":{"sender":"alice","ciphertext":"c9","timestamp":"2024-05-01T10:00:00"}}`)
	require.Eventually(t, func() bool { return len(ch.Messages()) == 1 }, waitFor, tick)

	assert.Equal(t, domain.ChannelOpen, ch.State())
	assert.Contains(t, rec.noticeKinds(), NoticeMalformed)
	assert.Equal(t, 1.0, metric(t, reg, "qchat_channel_malformed_events_total"))
}

func TestErrorEventBecomesNotice(t *testing.T) {
	ch, conn, rec, _ := newTestChannel(t)
	connect(t, ch)

	conn.push(`{"type":"error","data":{"message":"Decryption failed"}}`)
	require.Eventually(t, func() bool { return len(rec.noticeKinds()) == 1 }, waitFor, tick)

	rec.mu.Lock()
	n := rec.notices[0]
	rec.mu.Unlock()
	assert.Equal(t, NoticeRemote, n.Kind)
	assert.Equal(t, "Decryption failed", n.Message)
	assert.Equal(t, domain.ChannelOpen, ch.State())
}

func TestCloseIsIdempotentAndIgnoresLateEvents(t *testing.T) {
	ch, conn, rec, reg := newTestChannel(t)
	connect(t, ch)

	conn.push(`{"type":"new_message","data":{"sender":"alice","ciphertext":"c1","timestamp":"2024-05-01T10:00:00"}}`)
	require.Eventually(t, func() bool { return len(ch.Messages()) == 1 }, waitFor, tick)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	<-ch.Done()

	assert.Equal(t, domain.ChannelClosed, ch.State())
	assert.Equal(t, 0, ch.Pending())
	require.ErrorIs(t, ch.Send(domain.SenderAlice, "late"), domain.ErrChannelNotReady)

	ch.handleFrame([]byte(`{"type":"decrypted_message","data":{"ciphertext":"c1","plaintext":"too late"}}`))
	ch.handleFrame([]byte(`{"type":"new_message","data":{"sender":"bob","ciphertext":"c2","timestamp":"2024-05-01T10:00:01"}}`))
	assert.Len(t, ch.Messages(), 1)
	assert.Empty(t, ch.Messages()[0].Plaintext)

	assert.NotContains(t, rec.noticeKinds(), NoticeTransport, "explicit close is not a disconnect")
	assert.Equal(t, 0.0, metric(t, reg, "qchat_open_channels"))
	assert.Equal(t, 0.0, metric(t, reg, "qchat_pending_decryptions"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []domain.ChannelState{domain.ChannelOpen, domain.ChannelClosed}, rec.states)
}

func TestRemoteDisconnectClosesChannel(t *testing.T) {
	ch, conn, rec, _ := newTestChannel(t)
	connect(t, ch)

	close(conn.in)

	select {
	case <-ch.Done():
	case <-time.After(waitFor):
		t.Fatal("channel did not close after remote disconnect")
	}
	assert.Equal(t, domain.ChannelClosed, ch.State())
	assert.False(t, ch.CanSend())
	assert.Contains(t, rec.noticeKinds(), NoticeTransport)
}

func TestConnectFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	rec := newRecorder()
	dialErr := errors.New("connection refused")
	ch := New("s1", &fakeDialer{err: dialErr}, Options{Observer: rec, Log: logger})

	err := ch.Connect(context.Background())
	var terr *domain.TransportError
	require.ErrorAs(t, err, &terr)
	require.ErrorIs(t, err, dialErr)

	assert.Equal(t, domain.ChannelClosed, ch.State())
	<-ch.Done()
	assert.Contains(t, rec.noticeKinds(), NoticeTransport)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestConnectOnlyOnce(t *testing.T) {
	ch, _, _, _ := newTestChannel(t)
	connect(t, ch)
	require.Error(t, ch.Connect(context.Background()))
}

func TestCloseBeforeConnect(t *testing.T) {
	ch, _, rec, _ := newTestChannel(t)
	require.NoError(t, ch.Close())
	<-ch.Done()
	require.Error(t, ch.Connect(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []domain.ChannelState{domain.ChannelClosed}, rec.states)
}
