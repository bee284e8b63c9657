package navigator

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"qchat/internal/crypto"
	"qchat/internal/domain"
)

var errNoBackend = errors.New("no backend configured for decryption")

// State is a top-level screen.
type State int

const (
	Home State = iota
	KeyExchange
	Chat
	About
)

func (s State) String() string {
	switch s {
	case Home:
		return "home"
	case KeyExchange:
		return "key-exchange"
	case Chat:
		return "chat"
	case About:
		return "about"
	}
	return "unknown"
}

// ChannelFactory builds an unconnected channel for sess.
type ChannelFactory func(sess domain.SessionContext) domain.SecureChannel

// Options configures a Navigator. All fields are optional.
type Options struct {
	// Backend serves the REST decrypt fallback.
	Backend domain.BackendClient
	Log     logrus.FieldLogger
	// OnStateChange is called after every transition, outside any lock.
	OnStateChange func(from, to State)
}

// Navigator sequences Home, KeyExchange and Chat and owns the single active
// session and its channel.
//
// Chat is unreachable without a session. The channel lives exactly as long
// as the Chat screen: entering Chat dials a fresh one, leaving Chat closes
// it. Starting a new key exchange discards the session and its key.
type Navigator struct {
	handshake  domain.HandshakeService
	newChannel ChannelFactory
	backend    domain.BackendClient
	log        logrus.FieldLogger
	onState    func(from, to State)

	mu         sync.Mutex
	state      State
	session    *domain.SessionContext
	channel    domain.SecureChannel
	submitting bool
}

// New returns a Navigator on the Home screen.
func New(hs domain.HandshakeService, newChannel ChannelFactory, opts Options) *Navigator {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Navigator{
		handshake:  hs,
		newChannel: newChannel,
		backend:    opts.Backend,
		log:        log,
		onState:    opts.OnStateChange,
		state:      Home,
	}
}

// State returns the current screen.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Navigate moves to the requested screen and returns the screen actually
// entered. Chat without a session redirects to KeyExchange. Entering Chat
// dials the channel; a dial failure leaves the navigator on Chat with a
// closed channel and is returned as the error.
func (n *Navigator) Navigate(ctx context.Context, to State) (State, error) {
	log := n.log.WithFields(logrus.Fields{"function": "Navigate", "to": to.String()})

	n.mu.Lock()
	from := n.state
	var (
		closeCh  domain.SecureChannel
		wipe     *domain.SessionContext
		dialCh   domain.SecureChannel
		resolved = to
	)

	switch to {
	case Chat:
		if n.session == nil {
			resolved = KeyExchange
			log.Debug("no session; redirecting to key exchange")
			break
		}
		if n.channel == nil || n.channel.State() == domain.ChannelClosed {
			closeCh = n.channel
			n.channel = n.newChannel(*n.session)
			dialCh = n.channel
		}
	case KeyExchange:
		closeCh, wipe = n.detachLocked()
	case Home, About:
		closeCh = n.channel
		n.channel = nil
	}
	n.state = resolved
	n.mu.Unlock()

	n.release(closeCh, wipe)
	n.notify(from, resolved)

	if dialCh != nil {
		if err := dialCh.Connect(ctx); err != nil {
			log.WithError(err).Warn("channel connect failed")
			return resolved, err
		}
	}
	return resolved, nil
}

// CanSubmit reports whether a key exchange may be submitted now.
func (n *Navigator) CanSubmit() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == KeyExchange && !n.submitting
}

// Submit runs one key exchange with cfg. It is only allowed on the
// KeyExchange screen and not while another is running. On success the
// session is installed and the navigator enters Chat. On any failure it
// stays on KeyExchange and the returned error is the handshake's, so the
// caller can tell a *domain.ProtocolFailure from a *domain.HandshakeError.
func (n *Navigator) Submit(ctx context.Context, cfg domain.ProtocolConfig) (domain.SessionContext, error) {
	log := n.log.WithFields(logrus.Fields{"function": "Submit"})

	n.mu.Lock()
	switch {
	case n.state != KeyExchange:
		n.mu.Unlock()
		return domain.SessionContext{}, domain.ErrNotOnKeyExchange
	case n.submitting:
		n.mu.Unlock()
		return domain.SessionContext{}, domain.ErrHandshakeInProgress
	}
	n.submitting = true
	n.mu.Unlock()

	sess, err := n.handshake.ExchangeKey(ctx, cfg)

	n.mu.Lock()
	n.submitting = false
	n.mu.Unlock()

	if err != nil {
		log.WithError(err).Info("key exchange did not produce a session")
		return sess, err
	}

	if _, err := n.Adopt(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Adopt installs sess as the active session, replacing and releasing any
// previous one, and enters Chat. It is how a persisted session is resumed.
func (n *Navigator) Adopt(ctx context.Context, sess domain.SessionContext) (State, error) {
	if !sess.Valid() {
		return n.State(), domain.ErrNoSession
	}

	n.mu.Lock()
	closeCh, wipe := n.detachLocked()
	n.session = &sess
	n.mu.Unlock()

	n.release(closeCh, wipe)
	n.log.WithFields(logrus.Fields{
		"function":   "Adopt",
		"session_id": sess.SessionID.Short(),
	}).Info("session active")

	return n.Navigate(ctx, Chat)
}

// Session returns a copy of the active session context.
func (n *Navigator) Session() (domain.SessionContext, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return domain.SessionContext{}, false
	}
	return *n.session, true
}

// Channel returns the channel of the Chat screen, or nil.
func (n *Navigator) Channel() domain.SecureChannel {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channel
}

// Send sends message as sender over the active channel.
func (n *Navigator) Send(sender domain.Sender, message string) error {
	ch := n.Channel()
	if ch == nil {
		return domain.ErrChannelNotReady
	}
	return ch.Send(sender, message)
}

// Decrypt asks the backend to decrypt ciphertext over the request path,
// independently of the channel.
func (n *Navigator) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	sess, ok := n.Session()
	if !ok {
		return "", domain.ErrNoSession
	}
	if n.backend == nil {
		return "", errNoBackend
	}
	return n.backend.DecryptMessage(ctx, sess.SessionID, ciphertext)
}

// Close releases the session and channel and returns to Home.
func (n *Navigator) Close() error {
	n.mu.Lock()
	from := n.state
	closeCh, wipe := n.detachLocked()
	n.state = Home
	n.mu.Unlock()

	err := n.release(closeCh, wipe)
	n.notify(from, Home)
	return err
}

// detachLocked unhooks the session and channel. The caller releases them
// after dropping the lock.
func (n *Navigator) detachLocked() (domain.SecureChannel, *domain.SessionContext) {
	ch, sess := n.channel, n.session
	n.channel, n.session = nil, nil
	return ch, sess
}

func (n *Navigator) release(ch domain.SecureChannel, sess *domain.SessionContext) error {
	var err error
	if ch != nil {
		err = ch.Close()
	}
	crypto.WipeKey(sess)
	return err
}

func (n *Navigator) notify(from, to State) {
	if n.onState != nil {
		n.onState(from, to)
	}
}
