package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/logging"
	"github.com/dmitrijs2005/tzikbal/internal/server/config"
	"github.com/dmitrijs2005/tzikbal/internal/server/oauth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	authRateRequests = 20
	authRateWindow   = time.Minute
	shutdownTimeout  = 10 * time.Second
)

var newState = oauth.NewState

// Params are the dependencies of a Server. Google may be nil, in which
// case the /auth/google routes answer 503.
type Params struct {
	Config *config.Config
	Logger logging.Logger
	Users  UserService
	Media  MediaService
	Google IdentityProvider
	States oauth.StateStore
}

type Server struct {
	router        chi.Router
	log           logging.Logger
	users         UserService
	media         MediaService
	google        IdentityProvider
	states        oauth.StateStore
	validate      *validator.Validate
	version       string
	addr          string
	maxUploadSize int64
}

func NewServer(p Params) *Server {
	s := &Server{
		log:           p.Logger.With("module", "rest"),
		users:         p.Users,
		media:         p.Media,
		google:        p.Google,
		states:        p.States,
		validate:      newValidator(),
		version:       p.Config.Version,
		addr:          p.Config.EndpointAddrHTTP,
		maxUploadSize: p.Config.MaxUploadSize,
	}
	s.router = s.routes(p.Config)
	return s
}

func (s *Server) routes(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		accessLog(s.log),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		securityHeaders(cfg.Production),
		corsHandler(cfg.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Get("/", s.handleRoot)
	r.Get("/version", s.handleVersion)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRateLimit(authRateRequests, authRateWindow))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})
		r.With(s.requireAuth).Get("/profile", s.handleProfile)
		r.Get("/google", s.handleGoogleStart)
		r.Get("/google/redirect", s.handleGoogleRedirect)
	})

	r.Route("/media", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/upload", s.handleUpload)
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "starting http server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
