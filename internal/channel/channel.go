package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"qchat/internal/domain"
	"qchat/internal/instrument"
)

// ErrEmptyMessage is returned by Send for a blank message.
var ErrEmptyMessage = errors.New("message is empty")

var errAlreadyStarted = errors.New("channel already connecting or closed")

// Options configures a Channel. The zero value is usable.
type Options struct {
	Observer Observer
	Log      logrus.FieldLogger
	Metrics  *instrument.Metrics
}

// Channel is the live connection bound to one session. It starts in the
// connecting state, becomes open once the connection is established and
// ends closed; it never reopens. A new session needs a new Channel.
//
// Inbound frames are handled by a single goroutine in arrival order. The
// transcript, the correlation table and the state are guarded by mu; writes
// to the connection are serialised by writeMu.
type Channel struct {
	sessionID domain.SessionID
	dialer    Dialer
	obs       Observer
	log       logrus.FieldLogger
	metrics   *instrument.Metrics

	mu         sync.Mutex
	state      domain.ChannelState
	dialing    bool
	closing    bool
	conn       Conn
	transcript []domain.ChatMessage
	table      *Table

	writeMu sync.Mutex
	done    chan struct{}
}

var _ domain.SecureChannel = (*Channel)(nil)

// New returns a channel for sessionID in the connecting state. Nothing is
// dialled until Connect.
func New(sessionID domain.SessionID, dialer Dialer, opts Options) *Channel {
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Channel{
		sessionID: sessionID,
		dialer:    dialer,
		obs:       obs,
		log:       log.WithField("session_id", sessionID.Short()),
		metrics:   opts.Metrics,
		state:     domain.ChannelConnecting,
		table:     NewTable(),
		done:      make(chan struct{}),
	}
}

// SessionID returns the session the channel is bound to.
func (c *Channel) SessionID() domain.SessionID { return c.sessionID }

// Connect dials the backend and, on success, moves the channel to open and
// starts the read loop. On failure the channel is closed and a
// *domain.TransportError is returned. Connect may be called once.
func (c *Channel) Connect(ctx context.Context) error {
	log := c.log.WithFields(logrus.Fields{"function": "Connect"})

	c.mu.Lock()
	if c.state != domain.ChannelConnecting || c.dialing {
		c.mu.Unlock()
		return errAlreadyStarted
	}
	c.dialing = true
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.sessionID)
	if err != nil {
		terr := &domain.TransportError{Op: "connect", Err: err}
		log.WithError(err).Warn("channel dial failed")
		c.finish(terr)
		return terr
	}

	c.mu.Lock()
	if c.state == domain.ChannelClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return &domain.TransportError{Op: "connect", Err: errors.New("channel closed while connecting")}
	}
	c.conn = conn
	c.state = domain.ChannelOpen
	c.mu.Unlock()

	c.metrics.ChannelOpened()
	log.Debug("channel open")
	c.obs.StateChanged(domain.ChannelOpen)

	go c.readLoop(conn)
	return nil
}

// Send asks the backend to encrypt and broadcast message as sender. It only
// succeeds while the channel is open; otherwise nothing is written and
// domain.ErrChannelNotReady is returned.
func (c *Channel) Send(sender domain.Sender, message string) error {
	if !sender.Valid() {
		return domain.ErrInvalidSender
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != domain.ChannelOpen {
		c.mu.Unlock()
		return domain.ErrChannelNotReady
	}
	conn := c.conn
	c.mu.Unlock()

	if err := c.write(conn, SendMessageCommand{Sender: sender, Message: message}); err != nil {
		return &domain.TransportError{Op: "send_message", Err: err}
	}
	c.metrics.MessageSent()
	return nil
}

// Close tears the channel down. It is idempotent and safe to call from any
// goroutine. Events arriving afterwards are ignored.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	return c.finish(nil)
}

// State returns the current lifecycle state.
func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanSend reports whether Send would be attempted.
func (c *Channel) CanSend() bool { return c.State() == domain.ChannelOpen }

// Messages returns a copy of the transcript in arrival order. A message's
// index is its MessageID.
func (c *Channel) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Pending returns the number of ciphertexts still awaiting decryption.
func (c *Channel) Pending() int { return c.table.Len() }

// Done is closed once the channel reaches the closed state.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) readLoop(conn Conn) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			c.finish(&domain.TransportError{Op: "read", Err: err})
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Channel) handleFrame(raw []byte) {
	if c.State() != domain.ChannelOpen {
		return
	}

	ev, err := DecodeEvent(raw)
	if err != nil {
		c.metrics.MalformedEvent()
		c.log.WithFields(logrus.Fields{
			"function": "handleFrame",
			"bytes":    len(raw),
		}).WithError(err).Warn("dropping malformed event")
		c.obs.Notice(Notice{Kind: NoticeMalformed, Message: "ignored malformed event from server", Err: err})
		return
	}
	c.metrics.ChannelEvent(string(ev.Type()))

	switch e := ev.(type) {
	case SessionInfoEvent:
		c.obs.SessionInfo(e.Info)
	case MessageHistoryEvent:
		for _, m := range e.Messages {
			c.receive(m)
		}
	case NewMessageEvent:
		c.receive(e.Message)
	case DecryptedMessageEvent:
		c.resolve(e.Ciphertext, e.Plaintext)
	case ErrorEvent:
		c.log.WithFields(logrus.Fields{"function": "handleFrame"}).Warnf("server error: %s", e.Message)
		c.obs.Notice(Notice{Kind: NoticeRemote, Message: e.Message})
	}
}

// receive appends msg to the transcript, surfaces it in encrypted form and
// requests its decryption unless a request for the same ciphertext is
// already in flight.
func (c *Channel) receive(msg domain.ChatMessage) {
	msg.Plaintext = ""

	c.mu.Lock()
	if c.state == domain.ChannelClosed {
		c.mu.Unlock()
		return
	}
	id := domain.MessageID(len(c.transcript))
	c.transcript = append(c.transcript, msg)
	created := c.table.Register(msg.Ciphertext, id)
	open := c.state == domain.ChannelOpen
	request := open && c.table.MarkRequested(msg.Ciphertext)
	conn := c.conn
	c.mu.Unlock()

	if created {
		c.metrics.PendingDecryptions(1)
	}
	c.obs.MessageReceived(id, msg)

	switch {
	case request:
		if err := c.write(conn, DecryptMessageCommand{Ciphertext: msg.Ciphertext}); err != nil {
			c.log.WithFields(logrus.Fields{"function": "receive"}).WithError(err).Warn("decrypt request failed")
			return
		}
		c.metrics.DecryptRequested()
	case !open:
		c.metrics.DecryptDropped()
	}
}

func (c *Channel) resolve(ciphertext, plaintext string) {
	c.mu.Lock()
	if c.state == domain.ChannelClosed {
		c.mu.Unlock()
		return
	}
	ids, ok := c.table.Resolve(ciphertext)
	updated := make([]domain.ChatMessage, 0, len(ids))
	for _, id := range ids {
		c.transcript[id].Plaintext = plaintext
		updated = append(updated, c.transcript[id])
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.DecryptUnmatched()
		c.log.WithFields(logrus.Fields{"function": "resolve"}).Debug("decrypted_message with no pending entry")
		return
	}
	c.metrics.DecryptResolved()
	c.metrics.PendingDecryptions(-1)
	for i, id := range ids {
		c.obs.MessageDecrypted(id, updated[i])
	}
}

func (c *Channel) write(conn Conn, cmd Command) error {
	if conn == nil {
		return domain.ErrChannelNotReady
	}
	b, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(b)
}

// finish moves the channel to closed exactly once. A non-nil cause on a
// channel nobody asked to close is reported as a transport notice.
func (c *Channel) finish(cause error) error {
	c.mu.Lock()
	if c.state == domain.ChannelClosed {
		c.mu.Unlock()
		return nil
	}
	wasOpen := c.state == domain.ChannelOpen
	explicit := c.closing
	c.state = domain.ChannelClosed
	conn := c.conn
	c.conn = nil
	dropped := c.table.Reset()
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if wasOpen {
		c.metrics.ChannelClosed()
	}
	if dropped > 0 {
		c.metrics.PendingDecryptions(-dropped)
	}

	log := c.log.WithFields(logrus.Fields{"function": "finish", "pending_dropped": dropped})
	if cause != nil && !explicit {
		msg := "disconnected from secure channel"
		var terr *domain.TransportError
		if errors.As(cause, &terr) && terr.Err != nil {
			msg = fmt.Sprintf("%s: %s", msg, describeClose(terr.Err))
		}
		log.WithError(cause).Info("channel closed")
		c.obs.Notice(Notice{Kind: NoticeTransport, Message: msg, Err: cause})
	} else {
		log.Debug("channel closed")
	}
	c.obs.StateChanged(domain.ChannelClosed)
	close(c.done)
	return err
}
