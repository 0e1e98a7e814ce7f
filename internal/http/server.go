package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ledgerbot/internal/bot"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/middleware/security"
	"ledgerbot/internal/middleware/trace"
)

const (
	readyTimeout    = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Dispatcher answers one chat message.
type Dispatcher interface {
	Handle(ctx context.Context, m bot.Message) (string, bool)
}

// Deps is what the server needs from the rest of the process.
type Deps struct {
	Dispatcher Dispatcher
	Service    bot.Service
	// Ready reports backend readiness for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// Limiter caps /api requests per client IP; nil disables it.
	Limiter       *ratelimit.Limiter
	Logger        *log.Logger
	DefaultRecent int
	MaxRecent     int
}

type Server struct {
	http.Server
	dispatcher    Dispatcher
	svc           bot.Service
	ready         func(ctx context.Context) error
	logger        *log.Logger
	detector      *security.Detector
	tracer        *trace.Middleware
	defaultRecent int
	maxRecent     int

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	def := bot.DefaultConfig()
	if deps.MaxRecent <= 0 {
		deps.MaxRecent = def.MaxRecent
	}
	if deps.DefaultRecent <= 0 || deps.DefaultRecent > deps.MaxRecent {
		deps.DefaultRecent = min(def.DefaultRecent, deps.MaxRecent)
	}

	s := &Server{
		dispatcher:    deps.Dispatcher,
		svc:           deps.Service,
		ready:         deps.Ready,
		logger:        logger.WithComponent(log.ComponentHTTP),
		detector:      security.NewDetector(),
		tracer:        trace.NewMiddleware(),
		defaultRecent: deps.DefaultRecent,
		maxRecent:     deps.MaxRecent,
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/messages", s.handleMessage)
	api.HandleFunc("GET /api/expenses/recent", s.handleRecent)
	api.HandleFunc("GET /api/expenses/total", s.handleTotal)
	api.HandleFunc("GET /api/categories", s.handleCategories)

	var apiHandler http.Handler = api
	if deps.Limiter != nil {
		apiHandler = deps.Limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, s.detector.ExtractClientIP(r))
			TooManyRequestsError("rate limit exceeded, try again later").Write(w)
		})(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", apiHandler)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(s.logger)(handler)
	handler = log.Middleware(s.logger, trace.FromRequest, s.detector.ExtractClientIP)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "HTTP server listening", "addr", s.Addr, log.FieldOperation, log.OpStartup)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.InfoContext(ctx, "HTTP server shutting down", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server; later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError(err.Error()).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
