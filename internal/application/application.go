package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/modelcfg/internal/api"
	"github.com/eugenenazirov/modelcfg/internal/assets"
	"github.com/eugenenazirov/modelcfg/internal/config"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	inventory assets.Inventory
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// Option customizes New.
type Option func(*options)

type options struct {
	inventory assets.Inventory
}

// WithInventory replaces the filesystem inventory built from the settings.
func WithInventory(inventory assets.Inventory) Option {
	return func(o *options) {
		o.inventory = inventory
	}
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	inventory := o.inventory
	if inventory == nil {
		inventory = assets.NewFSInventory(cfg.Settings)
	}
	if err := inventory.Refresh(); err != nil {
		return nil, fmt.Errorf("inspect model files: %w", err)
	}
	list, err := inventory.Assets()
	if err != nil {
		return nil, fmt.Errorf("list model files: %w", err)
	}
	for _, missing := range assets.Missing(list) {
		logger.Warn("model file not found",
			zap.String("role", missing.Role),
			zap.String("path", missing.Path),
		)
	}

	handler := api.NewHandler(cfg.Settings, inventory)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		inventory: inventory,
		handler:   handler,
		router:    router,
		logger:    logger,
		server:    NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}
