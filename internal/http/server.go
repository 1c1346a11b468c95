package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"pillars/internal/cache"
	"pillars/internal/core"
	"pillars/internal/log"
	"pillars/internal/services"
	appweb "pillars/web"
)

// workingDay is the editable state of one date between requests.
type workingDay struct {
	sess  *core.Session
	found bool
	dirty bool
	// warnings from loading, cleared by a successful save
	warnings []string
	// items whose new price could not be persisted yet
	pendingPrices []string
}

// Options configures the server.
type Options struct {
	Ledger           *services.LedgerService
	Ready            func(ctx context.Context) error
	Logger           *log.Logger
	SessionTTL       time.Duration
	SessionCacheSize int
}

type Server struct {
	http.Server
	templates   *template.Template
	ledger      *services.LedgerService
	ready       func(ctx context.Context) error
	logger      *log.Logger
	rateLimiter *rateLimiter

	// mu serializes every read and edit of the working days.
	mu           sync.Mutex
	sessions     *cache.LRUCache[*workingDay]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:       opts.Ledger,
		ready:        opts.Ready,
		logger:       logger,
		rateLimiter:  newRateLimiter(120, time.Minute),
		sessions:     cache.NewLRUCache[*workingDay](opts.SessionCacheSize, opts.SessionTTL),
		cacheManager: cache.NewManager(logger),
	}
	s.sessions.OnEvict(func(key string, wd *workingDay) {
		if wd.dirty {
			logger.Warn("Dropped working day with unsaved changes", log.FieldDate, key)
		}
	})
	s.cacheManager.Register(s.sessions)
	s.cacheManager.StartCleanup(10 * time.Minute)
	go s.rateLimiter.startCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/day", s.withSecurityHeaders(s.handleDay))
	mux.HandleFunc("/day/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("/dates", s.withSecurityHeaders(s.handleDates))
	mux.HandleFunc("/api/summary", s.withSecurityHeaders(s.handleSummary))

	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting of posts and
// request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	structured := log.NewStructuredLogger(s.logger)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
