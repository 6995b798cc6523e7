// Package devserver serves cached worker bundles from the development
// server under their public paths.
package devserver

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cryguy/monacoworkers/internal/core"
	"github.com/cryguy/monacoworkers/internal/registry"
)

var servedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "monacoworkers_dev_served_total",
		Help: "Worker bundles served by the dev middleware",
	},
	[]string{"label", "status"},
)

// Middleware answers requests for worker bundles and passes everything else
// through. Its route table is fixed at construction.
type Middleware struct {
	store  core.BundleStore
	units  []core.WorkUnit
	routes map[string]core.WorkUnit
	enc    *encoder
	logger zerolog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Middleware) { m.logger = l }
}

// New builds the route table base + publicPath + "/" + derived filename for
// every unit.
func New(store core.BundleStore, units []core.WorkUnit, base, publicPath string, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		units:  units,
		routes: make(map[string]core.WorkUnit, len(units)),
		enc:    newEncoder(),
		logger: log.Logger,
	}
	for _, o := range opts {
		o(m)
	}
	for _, u := range units {
		m.routes[VirtualPath(base, publicPath, u)] = u
	}
	return m
}

// VirtualPath is the dev-server path a unit is served at.
func VirtualPath(base, publicPath string, u core.WorkUnit) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.Trim(publicPath, "/") + "/" + registry.DeriveFilename(u.Entry)
}

// Paths returns the served paths, sorted.
func (m *Middleware) Paths() []string {
	out := make([]string, 0, len(m.routes))
	for p := range m.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Warm bundles every routed unit so requests only read from disk.
func (m *Middleware) Warm(ctx context.Context) error {
	return m.store.Warm(ctx, m.units)
}

// Handler wraps next. Requests whose path matches a worker route are
// answered here; all others reach next untouched.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unit, ok := m.routes[r.URL.Path]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		m.serveHTTP(w, r, unit)
	})
}

func (m *Middleware) serveHTTP(w http.ResponseWriter, r *http.Request, unit core.WorkUnit) {
	body, enc, err := m.load(r.Context(), unit, r.Header.Get("Accept-Encoding"))
	if err != nil {
		servedTotal.WithLabelValues(unit.Label, "error").Inc()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentType(registry.DeriveFilename(unit.Entry)))
	h.Set("Cache-Control", "no-cache")
	h.Add("Vary", "Accept-Encoding")
	if enc != "" {
		h.Set("Content-Encoding", enc)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
	servedTotal.WithLabelValues(unit.Label, "ok").Inc()
}

// Fiber returns the same middleware for fiber applications.
func (m *Middleware) Fiber() fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, ok := m.routes[c.Path()]
		if !ok {
			return c.Next()
		}
		body, enc, err := m.load(c.UserContext(), unit, c.Get(fiber.HeaderAcceptEncoding))
		if err != nil {
			servedTotal.WithLabelValues(unit.Label, "error").Inc()
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, contentType(registry.DeriveFilename(unit.Entry)))
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Vary(fiber.HeaderAcceptEncoding)
		if enc != "" {
			c.Set(fiber.HeaderContentEncoding, enc)
		}
		servedTotal.WithLabelValues(unit.Label, "ok").Inc()
		return c.Status(fiber.StatusOK).Send(body)
	}
}

func (m *Middleware) load(ctx context.Context, unit core.WorkUnit, acceptEncoding string) ([]byte, string, error) {
	data, err := m.store.Read(ctx, unit)
	if err != nil {
		m.logger.Error().Err(err).Str("label", unit.Label).Msg("Failed to serve worker bundle")
		return nil, "", err
	}
	body, enc, err := m.enc.encode(acceptEncoding, data)
	if err != nil {
		// Fall back to the identity encoding rather than failing the request.
		m.logger.Warn().Err(err).Str("label", unit.Label).Msg("Failed to compress worker bundle")
		return data, "", nil
	}
	return body, enc, nil
}

// contentType guesses the MIME type from the file extension.
func contentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return "application/octet-stream"
	}
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
