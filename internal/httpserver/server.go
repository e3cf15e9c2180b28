// internal/httpserver/server.go
//
// HTTP server wiring for the color-matching game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, request log).
//   - Public endpoints: "/", "/health", "/catalog".
//   - Game endpoints: POST /game/new, then per-session routes under /game/{id}
//     guarded by a session token.
//   - Daily boards: mounted under /daily.
//   - Snapshot stream: GET /game/{id}/events (WebSocket).
//
// Notes:
//   - The server is the presentation boundary: it forwards start/reset/select into
//     an engine and hands back snapshots. It never mutates game state itself.
//   - CORS is origin-aware and credentials-enabled.
//   - The WebSocket route sits outside the request timeout.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/catalog"
	"github.com/robalobadob/colormatch/internal/game"
	"github.com/robalobadob/colormatch/internal/store"
)

// Options configures a Server. Zero fields get defaults.
type Options struct {
	Catalog       catalog.Catalog
	SessionSecret string
	TokenTTL      time.Duration
	SettleDelay   time.Duration
	AdvanceDelay  time.Duration
	DailySalt     string
	ClientOrigin  string
	Scheduler     game.Scheduler   // nil: wall clock
	Now           func() time.Time // nil: time.Now
}

// Server bundles router, session store and engine settings.
type Server struct {
	r     *chi.Mux
	store store.Store
	opts  Options

	http *http.Server
	quit chan struct{} // closed on Shutdown; ends open event streams
	once sync.Once
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, opts Options) *Server {
	if len(opts.Catalog) == 0 {
		opts.Catalog = catalog.Default()
	}
	if opts.SessionSecret == "" {
		opts.SessionSecret = "dev_secret_change_me"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.DailySalt == "" {
		opts.DailySalt = "local_dev_salt"
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{r: chi.NewRouter(), store: st, opts: opts, quit: make(chan struct{})}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // one debug line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"colormatch","endpoints":["/health","/catalog","POST /game/new","/game/{id}/*","/daily/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.store.Len()})
	})
	s.r.Get("/catalog", s.handleCatalog)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Post("/game/new", s.handleNewGame)
		s.mountDaily(r)

		// session routes require the token issued by /game/new
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession())
			r.Get("/game/{id}", s.handleSnapshot)
			r.Post("/game/{id}/start", s.handleStart)
			r.Post("/game/{id}/reset", s.handleReset)
			r.Post("/game/{id}/select", s.handleSelect)
			r.Delete("/game/{id}", s.handleDelete)
		})
	})

	// long-lived; no timeout
	s.r.With(s.requireSession()).Get("/game/{id}/events", s.handleEvents)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown ends event streams and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.quit) })
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs method, path, status and latency at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------- helpers -----------------------------------

// writeError sends {"error": code} with the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// handleCatalog returns the loaded color catalog in order.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{"colors": s.opts.Catalog})
}
