package api

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimit bounds how often the model inventory may be inspected.
// Zero or negative values disable the limit.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if rps <= 0 || burst <= 0 {
			cfg.inventoryLimiter = nil
			return
		}
		cfg.inventoryLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRateLimiter installs a prepared limiter for the inventory route.
func WithRateLimiter(limiter *rate.Limiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.inventoryLimiter = limiter
	}
}

type routerConfig struct {
	enableLogging    bool
	inventoryLimiter *rate.Limiter
}

// NewRouter exposes the settings and the model inventory. Only the inventory
// touches the filesystem, so only that route is rate limited.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		enableLogging:    true,
		inventoryLimiter: rate.NewLimiter(25, 50),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handler.handleHealth)
	mux.HandleFunc("GET /api/settings", handler.handleGetSettings)
	mux.Handle("GET /api/models", limitInventory(cfg.inventoryLimiter, http.HandlerFunc(handler.handleGetModels)))

	var root http.Handler = mux
	root = readOnlyCORS(root)
	root = recoverPanics(logger, root)
	if cfg.enableLogging {
		root = accessLog(logger, root)
	}
	return withRequestID(root)
}
