package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const metricsShutdownGrace = 2 * time.Second

// ServeMetrics serves h on addr under /metrics until ctx is done. It returns
// once the listener is bound; serving errors are logged.
func ServeMetrics(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log = log.WithFields(logrus.Fields{"function": "ServeMetrics", "addr": ln.Addr().String()})
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	log.Info("serving metrics")
	return ln.Addr(), nil
}
