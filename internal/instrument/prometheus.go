// Package instrument exposes Prometheus collectors for the handshake and
// secure channel. A nil *Metrics is valid and records nothing.
package instrument

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qchat"

// Handshake outcome labels.
const (
	OutcomeSuccess         = "success"
	OutcomeProtocolFailure = "protocol_failure"
	OutcomeError           = "error"
)

// Metrics holds every collector the client records into.
type Metrics struct {
	handshakes        *prometheus.CounterVec
	channelEvents     *prometheus.CounterVec
	malformedEvents   prometheus.Counter
	decryptRequests   prometheus.Counter
	decryptDropped    prometheus.Counter
	decryptResolved   prometheus.Counter
	decryptUnmatched  prometheus.Counter
	pendingDecryption prometheus.Gauge
	openChannels      prometheus.Gauge
	outboundSends     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		handshakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshakes_total",
				Help:      "Number of key exchanges by outcome",
			},
			[]string{"outcome"},
		),
		channelEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_events_total",
				Help:      "Number of inbound channel events by type",
			},
			[]string{"type"},
		),
		malformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_malformed_events_total",
			Help:      "Number of inbound frames dropped as malformed",
		}),
		decryptRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_requests_total",
			Help:      "Number of decrypt_message commands sent",
		}),
		decryptDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_requests_dropped_total",
			Help:      "Number of decrypt requests dropped because the channel was not open",
		}),
		decryptResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_responses_resolved_total",
			Help:      "Number of decrypted_message events matched to a pending message",
		}),
		decryptUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_responses_unmatched_total",
			Help:      "Number of decrypted_message events with no pending message",
		}),
		pendingDecryption: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_decryptions",
			Help:      "Ciphertexts awaiting a decrypted_message event",
		}),
		openChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_channels",
			Help:      "Secure channels currently open",
		}),
		outboundSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_message_commands_total",
			Help:      "Number of send_message commands written to the channel",
		}),
	}
	var err error
	if m.handshakes, err = register(reg, m.handshakes); err != nil {
		return nil, err
	}
	if m.channelEvents, err = register(reg, m.channelEvents); err != nil {
		return nil, err
	}
	if m.malformedEvents, err = register(reg, m.malformedEvents); err != nil {
		return nil, err
	}
	if m.decryptRequests, err = register(reg, m.decryptRequests); err != nil {
		return nil, err
	}
	if m.decryptDropped, err = register(reg, m.decryptDropped); err != nil {
		return nil, err
	}
	if m.decryptResolved, err = register(reg, m.decryptResolved); err != nil {
		return nil, err
	}
	if m.decryptUnmatched, err = register(reg, m.decryptUnmatched); err != nil {
		return nil, err
	}
	if m.pendingDecryption, err = register(reg, m.pendingDecryption); err != nil {
		return nil, err
	}
	if m.openChannels, err = register(reg, m.openChannels); err != nil {
		return nil, err
	}
	if m.outboundSends, err = register(reg, m.outboundSends); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already
// registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Handshake(outcome string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChannelEvent(eventType string) {
	if m == nil {
		return
	}
	m.channelEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) MalformedEvent() {
	if m == nil {
		return
	}
	m.malformedEvents.Inc()
}

func (m *Metrics) DecryptRequested() {
	if m == nil {
		return
	}
	m.decryptRequests.Inc()
}

func (m *Metrics) DecryptDropped() {
	if m == nil {
		return
	}
	m.decryptDropped.Inc()
}

func (m *Metrics) DecryptResolved() {
	if m == nil {
		return
	}
	m.decryptResolved.Inc()
}

func (m *Metrics) DecryptUnmatched() {
	if m == nil {
		return
	}
	m.decryptUnmatched.Inc()
}

// PendingDecryptions adds delta to the pending gauge.
func (m *Metrics) PendingDecryptions(delta int) {
	if m == nil {
		return
	}
	m.pendingDecryption.Add(float64(delta))
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.openChannels.Inc()
}

func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.openChannels.Dec()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.outboundSends.Inc()
}
