package app

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"qchat/internal/api"
	"qchat/internal/channel"
	"qchat/internal/domain"
	"qchat/internal/instrument"
	"qchat/internal/navigator"
	handshakesvc "qchat/internal/services/handshake"
	"qchat/internal/store"
)

// Options are runtime wiring inputs that do not live in the config file.
type Options struct {
	// Home is the state directory, e.g. $HOME/.qchat.
	Home string
	// HTTP is optional; a client with the configured timeout is built when nil.
	HTTP *http.Client
	// Log is optional; the standard logger is used when nil.
	Log logrus.FieldLogger
}

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config    *Config
	Log       logrus.FieldLogger
	Registry  *prometheus.Registry
	Metrics   *instrument.Metrics
	Backend   *api.HTTP
	Handshake *handshakesvc.Service
	Dialer    *channel.WebSocketDialer
	Sessions  *store.SessionFileStore
	HTTP      *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg *Config, opts Options) (*Wire, error) {
	if cfg == nil {
		cfg = Default()
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	timeout := cfg.Server.Timeout()

	// Metrics registry; the endpoint is only served when an address is set.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := instrument.New(reg)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	backend := api.NewHTTP(cfg.Server.APIURL, httpClient)
	backend.Log = log

	dialer := &channel.WebSocketDialer{
		APIURL:       cfg.Server.APIURL,
		WebSocketURL: cfg.Server.WebSocketURL,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
	}

	return &Wire{
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		Metrics:   m,
		Backend:   backend,
		Handshake: handshakesvc.New(backend, log, m),
		Dialer:    dialer,
		Sessions:  store.NewSessionFileStore(opts.Home),
		HTTP:      httpClient,
	}, nil
}

// NewChannel builds an unconnected channel for sess reporting to obs.
func (w *Wire) NewChannel(sess domain.SessionContext, obs channel.Observer) *channel.Channel {
	return channel.New(sess.SessionID, w.Dialer, channel.Options{
		Observer: obs,
		Log:      w.Log,
		Metrics:  w.Metrics,
	})
}

// NewNavigator builds a navigator whose channels report to obs.
func (w *Wire) NewNavigator(obs channel.Observer, onState func(from, to navigator.State)) *navigator.Navigator {
	return navigator.New(
		w.Handshake,
		func(sess domain.SessionContext) domain.SecureChannel { return w.NewChannel(sess, obs) },
		navigator.Options{
			Backend:       w.Backend,
			Log:           w.Log,
			OnStateChange: onState,
		},
	)
}

// MetricsHandler serves the wire's registry.
func (w *Wire) MetricsHandler() http.Handler {
	return instrument.Handler(w.Registry)
}
