package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"qchat/internal/channel"
	"qchat/internal/domain"
	"qchat/internal/navigator"
)

// App is one interactive chat: the navigator plus session persistence.
type App struct {
	Nav      *navigator.Navigator
	Sessions domain.SessionStore
	Backend  domain.BackendClient
	log      logrus.FieldLogger
}

// New builds an App on w whose channels report to obs.
func New(w *Wire, obs channel.Observer, onState func(from, to navigator.State)) *App {
	return &App{
		Nav:      w.NewNavigator(obs, onState),
		Sessions: w.Sessions,
		Backend:  w.Backend,
		log:      w.Log,
	}
}

// KeyExchange moves to the key-exchange screen and submits cfg. A successful
// session is saved under passphrase when one is given; a save failure is
// logged and does not undo the session.
func (a *App) KeyExchange(ctx context.Context, cfg domain.ProtocolConfig, passphrase string) (domain.SessionContext, error) {
	if _, err := a.Nav.Navigate(ctx, navigator.KeyExchange); err != nil {
		return domain.SessionContext{}, err
	}
	sess, err := a.Nav.Submit(ctx, cfg)
	if sess.Valid() && sess.SecurityReport.Success && passphrase != "" && a.Sessions != nil {
		if serr := a.Sessions.SaveSession(passphrase, sess); serr != nil {
			a.log.WithFields(logrus.Fields{"function": "KeyExchange"}).WithError(serr).Warn("could not persist session")
		}
	}
	return sess, err
}

// Resume adopts the session saved under passphrase and enters Chat.
func (a *App) Resume(ctx context.Context, passphrase string) (domain.SessionContext, error) {
	if a.Sessions == nil {
		return domain.SessionContext{}, domain.ErrNoSession
	}
	sess, ok, err := a.Sessions.LoadSession(passphrase)
	if err != nil {
		return domain.SessionContext{}, err
	}
	if !ok {
		return domain.SessionContext{}, domain.ErrNoSession
	}
	_, err = a.Nav.Adopt(ctx, sess)
	return sess, err
}

// Close tears down the active session and its channel.
func (a *App) Close() error {
	return a.Nav.Close()
}
