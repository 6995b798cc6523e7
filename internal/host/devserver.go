// Package host is a minimal static site host that drives the plugin hooks:
// a development server over a project root and a production build that
// writes transformed HTML pages.
package host

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MetricsPath is where the dev server exposes Prometheus metrics.
const MetricsPath = "/__monacoworkers/metrics"

// HTMLTransformer rewrites an HTML page before it is served or written.
type HTMLTransformer func(html string) (string, error)

// DevServer serves files under Root. HTML pages pass through Transform;
// middleware registered with Use runs in front of the file server, first
// registered outermost.
type DevServer struct {
	root      string
	base      string
	transform HTMLTransformer
	logger    zerolog.Logger

	mu         sync.Mutex
	middleware []func(http.Handler) http.Handler
}

// DevOption configures a DevServer.
type DevOption func(*DevServer)

// WithBase serves the site under a path prefix such as /app/.
func WithBase(base string) DevOption {
	return func(s *DevServer) { s.base = base }
}

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) DevOption {
	return func(s *DevServer) { s.logger = l }
}

// NewDevServer returns a server for root. A nil transform serves HTML as is.
func NewDevServer(root string, transform HTMLTransformer, opts ...DevOption) *DevServer {
	s := &DevServer{root: root, base: "/", transform: transform, logger: log.Logger}
	for _, o := range opts {
		o(s)
	}
	if !strings.HasPrefix(s.base, "/") {
		s.base = "/" + s.base
	}
	if !strings.HasSuffix(s.base, "/") {
		s.base += "/"
	}
	return s
}

// Use registers middleware. It satisfies core.Server.
func (s *DevServer) Use(mw func(http.Handler) http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw)
}

// Handler assembles the middleware chain as it stands now.
func (s *DevServer) Handler() http.Handler {
	s.mu.Lock()
	chain := make([]func(http.Handler) http.Handler, len(s.middleware))
	copy(chain, s.middleware)
	s.mu.Unlock()

	var h http.Handler = http.HandlerFunc(s.serveStatic)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.Handler())
	mux.Handle("/", h)
	return s.accessLog(mux)
}

// Serve answers requests on ln until ctx is canceled, then shuts down
// gracefully.
func (s *DevServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *DevServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Str("root", s.root).Str("base", s.base).Msg("Dev server listening")
	return s.Serve(ctx, ln)
}

func (s *DevServer) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rel, ok := strings.CutPrefix(r.URL.Path, s.base)
	if !ok {
		if r.URL.Path+"/" == s.base {
			http.Redirect(w, r, s.base, http.StatusMovedPermanently)
			return
		}
		http.NotFound(w, r)
		return
	}

	name := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+rel)))
	info, err := os.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		if _, err := os.Stat(name); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	if strings.EqualFold(filepath.Ext(name), ".html") {
		s.serveHTML(w, r, name)
		return
	}
	http.ServeFile(w, r, name)
}

func (s *DevServer) serveHTML(w http.ResponseWriter, r *http.Request, name string) {
	data, err := os.ReadFile(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page := string(data)
	if s.transform != nil {
		page, err = s.transform(page)
		if err != nil {
			s.logger.Error().Err(err).Str("file", name).Msg("Failed to transform HTML")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(page))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *DevServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}
