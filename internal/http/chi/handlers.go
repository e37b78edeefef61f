package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/marcelsud/webhook-inspector/webhook/capture"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxBodyBytes   = 1 << 20
	DefaultRequestTimeout = 30 * time.Second
)

// Options tunes the HTTP surface; zero values fall back to defaults
type Options struct {
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	TrustProxy     bool
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

/* router sends capture paths around the chi mux: chi answers 405 to methods
 * it does not know, and the capture route must take any method at all
 */
type router struct {
	api     *chi.Mux
	capture http.Handler
}

func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if capture.IsCapturePath(r.URL) {
		rt.capture.ServeHTTP(w, r)
		return
	}
	rt.api.ServeHTTP(w, r)
}

// Handlers sets up the capture route and the inspection API
func Handlers(service webhook.UseCase, logger zerolog.Logger, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	middlewares := chi.Middlewares{middleware.RequestID}
	if opts.TrustProxy {
		middlewares = append(middlewares, middleware.RealIP)
	}
	middlewares = append(middlewares,
		httplog.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(opts.RequestTimeout),
	)

	r := chi.NewRouter()
	r.Use(middlewares...)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/webhooks", func(r chi.Router) {
		r.Use(corsHandler(opts.AllowedOrigins))

		r.Get("/", listWebhooks(service).ServeHTTP)
		r.Get("/{id}", getWebhook(service).ServeHTTP)
		r.Delete("/{id}", deleteWebhook(service).ServeHTTP)
	})

	return &router{
		api:     r,
		capture: chi.Chain(middlewares...).Handler(captureWebhook(service, opts.MaxBodyBytes)),
	}
}

// corsHandler reflects any origin when "*" is configured so credentials stay usable
func corsHandler(origins []string) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	} else {
		options.AllowedOrigins = origins
	}
	return cors.Handler(options)
}
