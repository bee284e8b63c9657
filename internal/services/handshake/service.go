package handshake

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qchat/internal/api"
	"qchat/internal/domain"
	"qchat/internal/instrument"
)

// Service drives the key-exchange request and classifies its outcome.
//
// There are three results:
//   - success: a SessionContext whose report says success.
//   - protocol failure: the exchange ran but established no key. A
//     *domain.ProtocolFailure carries the reason verbatim, and the
//     SessionContext is returned too when the backend produced one.
//   - handshake error: the request did not complete, or the response had no
//     session identifier. Returned as *domain.HandshakeError.
//
// The service never retries and never validates the config.
type Service struct {
	backend domain.BackendClient
	log     logrus.FieldLogger
	metrics *instrument.Metrics

	newUserID func() string
	now       func() time.Time
}

// New constructs a handshake Service. log and metrics may be nil.
func New(backend domain.BackendClient, log logrus.FieldLogger, metrics *instrument.Metrics) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		backend:   backend,
		log:       log,
		metrics:   metrics,
		newUserID: uuid.NewString,
		now:       time.Now,
	}
}

// ExchangeKey issues exactly one key-exchange request for cfg.
func (s *Service) ExchangeKey(ctx context.Context, cfg domain.ProtocolConfig) (domain.SessionContext, error) {
	log := s.log.WithFields(logrus.Fields{
		"function":   "ExchangeKey",
		"key_length": cfg.KeyLength,
		"enable_eve": cfg.EnableEve,
	})

	resp, err := s.backend.KeyExchange(ctx, domain.KeyExchangeRequest{
		UserID: s.newUserID(),
		Config: cfg,
	})
	if err != nil {
		// The backend answers a failed run it could not report normally with
		// 400 and a textual detail.
		var se *api.StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest && se.Detail != "" {
			s.metrics.Handshake(instrument.OutcomeProtocolFailure)
			log.WithField("reason", se.Detail).Info("key exchange rejected")
			return domain.SessionContext{}, &domain.ProtocolFailure{Reason: se.Detail}
		}
		s.metrics.Handshake(instrument.OutcomeError)
		log.WithError(err).Warn("key exchange request failed")
		return domain.SessionContext{}, &domain.HandshakeError{Reason: "request failed", Err: err}
	}

	if resp.SessionID == "" {
		s.metrics.Handshake(instrument.OutcomeError)
		log.Warn("key exchange response without session_id")
		return domain.SessionContext{}, &domain.HandshakeError{Reason: "response carried no session identifier"}
	}

	sess := domain.SessionContext{
		SessionID:      resp.SessionID,
		QuantumKey:     resp.QuantumKey,
		SecurityReport: resp.Result,
		CreatedUTC:     s.now().Unix(),
	}
	log = log.WithField("session_id", sess.SessionID.Short())

	if !resp.Result.Success {
		s.metrics.Handshake(instrument.OutcomeProtocolFailure)
		report := resp.Result
		log.WithField("reason", report.FailureReason).Info("key exchange did not establish a key")
		return sess, &domain.ProtocolFailure{Reason: report.FailureReason, Report: &report}
	}

	s.metrics.Handshake(instrument.OutcomeSuccess)
	log.Info("key exchange succeeded")
	return sess, nil
}

// Compile-time assertion that Service implements domain.HandshakeService.
var _ domain.HandshakeService = (*Service)(nil)
