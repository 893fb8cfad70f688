// Package middleware adapts the configured server-side auth context to
// standard HTTP middleware.
package middleware

import (
	"bufio"
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/logger"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-Id"

// Decision labels recorded on the decisions counter.
const (
	decisionAllowed     = "allowed"
	decisionDenied      = "denied"
	decisionPassthrough = "passthrough"
	decisionError       = "error"
)

// Options configure the middleware.
type Options struct {
	// Intercept is the interception point to look up. Defaults to
	// auth.InterceptHTTP.
	Intercept string

	// ProviderID selects the provider entry. An empty ID selects the
	// intercept's default entry.
	ProviderID string

	// Handler is passed to modules at bind time. May be nil.
	Handler auth.CallbackHandler

	// Registerer receives the decisions counter. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Middleware returns HTTP middleware that runs the configured server-side
// module chain for each request. Requests pass through untouched when no
// chain is configured for the interception point; validation failures are
// rejected with 401 and configuration failures with 500.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.Intercept == "" {
		opts.Intercept = auth.InterceptHTTP
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	decisions := registerDecisionCounter(reg)

	record := func(decision string) {
		decisions.WithLabelValues(opts.Intercept, opts.ProviderID, decision).Inc()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			cfg, err := auth.GetConfig()
			if err != nil {
				logger.Errorw("failed to resolve auth configuration", "error", err, "request_id", requestID)
				record(decisionError)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := r.Context()
			sc, ok, err := cfg.ServerContext(ctx, opts.Intercept, opts.ProviderID,
				auth.Policy{}, auth.Policy{}, opts.Handler)
			if err != nil {
				logger.Errorw("failed to acquire server auth context", "error", err, "request_id", requestID)
				record(decisionError)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !ok {
				// No modules configured for this interception point.
				record(decisionPassthrough)
				next.ServeHTTP(w, r)
				return
			}
			defer sc.Dispose()

			msg := auth.NewMessage(r)
			if err := sc.ValidateRequest(ctx, msg); err != nil {
				logger.Infow("request rejected", "error", err, "request_id", requestID, "path", r.URL.Path)
				record(decisionDenied)
				copyHeader(w.Header(), msg.Header)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			record(decisionAllowed)

			if msg.Identity != nil {
				ctx = auth.WithIdentity(ctx, msg.Identity)
			}

			sw := &securedWriter{ResponseWriter: w, ctx: ctx, sc: sc, msg: msg}
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.secure()
		})
	}
}

// registerDecisionCounter registers the decisions counter with reg. Several
// middleware instances may share one registerer (one per provider entry),
// so an already-registered counter is reused rather than treated as a
// conflict.
func registerDecisionCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "auth_decisions_total",
		Help:      "Auth decisions by interception point, provider ID and outcome.",
	}, []string{"intercept", "id", "decision"})

	if err := reg.Register(decisions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		logger.Errorf("Failed to register auth decisions counter: %v", err)
	}
	return decisions
}

// securedWriter runs SecureResponse before the first byte of the response
// is committed, so modules can still add protection headers.
type securedWriter struct {
	http.ResponseWriter
	ctx     context.Context
	sc      auth.ServerContext
	msg     *auth.Message
	secured bool
}

func (s *securedWriter) secure() {
	if s.secured {
		return
	}
	s.secured = true
	if err := s.sc.SecureResponse(s.ctx, s.msg); err != nil {
		// The status line may already be decided; all we can do is log.
		logger.Errorw("failed to secure response", "error", err)
		return
	}
	copyHeader(s.ResponseWriter.Header(), s.msg.Header)
}

func (s *securedWriter) WriteHeader(statusCode int) {
	s.secure()
	s.ResponseWriter.WriteHeader(statusCode)
}

func (s *securedWriter) Write(b []byte) (int, error) {
	s.secure()
	return s.ResponseWriter.Write(b)
}

// Flush lets streaming handlers behind the chain keep flushing.
func (s *securedWriter) Flush() {
	s.secure()
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over for protocol upgrades; the response is
// secured first since nothing written afterwards goes through us.
func (s *securedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	s.secure()
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *securedWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
