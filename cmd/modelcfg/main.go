package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/modelcfg/internal/application"
	"github.com/eugenenazirov/modelcfg/internal/assets"
	"github.com/eugenenazirov/modelcfg/internal/config"
	"github.com/eugenenazirov/modelcfg/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	kingpinApp := kingpin.New("modelcfg", "Model settings for the pose pipeline - resolves model asset locations from the environment")
	envFile := kingpinApp.Flag("env-file", "Environment file merged into the process environment").Default(".env").String()
	noEnvFile := kingpinApp.Flag("no-env-file", "Do not read an environment file").Bool()
	var logLevelSet bool
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").Envar("LOG_LEVEL").Default("info").IsSetByUser(&logLevelSet).String()

	showCmd := kingpinApp.Command("show", "Print the resolved model settings").Default()
	format := showCmd.Flag("format", "Output format").Short('f').Default("yaml").Enum("yaml", "json", "env")

	checkCmd := kingpinApp.Command("check", "Report which model files exist; exits 1 when one is missing")

	serveCmd := kingpinApp.Command("serve", "Serve settings and model inventory over HTTP")
	configFile := serveCmd.Flag("config", "Path to YAML configuration file").String()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "modelcfg: %v\n", err)
		return 2
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	settings := config.LoadSettings(config.SettingsOptions{
		EnvFile:     *envFile,
		SkipEnvFile: *noEnvFile,
		Logger:      logger,
	})

	switch command {
	case showCmd.FullCommand():
		if err := writeSettings(stdout, settings, *format); err != nil {
			logger.Error("failed to print settings", zap.Error(err))
			return 1
		}
	case checkCmd.FullCommand():
		missing, err := writeInventory(stdout, assets.NewFSInventory(settings))
		if err != nil {
			logger.Error("failed to inspect model files", zap.Error(err))
			return 1
		}
		if missing > 0 {
			return 1
		}
	case serveCmd.FullCommand():
		overrides := &config.CLIOverrides{
			ConfigFile: *configFile,
		}
		if logLevelSet {
			overrides.LogLevel = logLevel
		}
		if *port != "" {
			overrides.Port = port
		}
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
		return serve(settings, overrides, *logLevel, logger)
	}
	return 0
}

func serve(settings config.Settings, overrides *config.CLIOverrides, level string, logger *zap.Logger) int {
	cfg, err := config.Load(settings, overrides)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	if cfg.LogLevel != level {
		serverLogger, err := logging.New(cfg.LogLevel)
		if err != nil {
			logger.Error("failed to initialize logger", zap.Error(err))
			return 1
		}
		defer func() {
			_ = serverLogger.Sync()
		}()
		logger = serverLogger
	}

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}

	if err := app.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return 1
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return 0
}

func writeSettings(w io.Writer, settings config.Settings, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	case "env":
		_, err := fmt.Fprintln(w, strings.Join(settings.Environ(), "\n"))
		return err
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(settings); err != nil {
			return err
		}
		return enc.Close()
	}
}

func writeInventory(w io.Writer, inventory assets.Inventory) (int, error) {
	if err := inventory.Refresh(); err != nil {
		return 0, err
	}
	list, err := inventory.Assets()
	if err != nil {
		return 0, err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tSTATUS\tSIZE\tPATH")
	for _, a := range list {
		status := "missing"
		size := "-"
		if a.Present {
			status = "ok"
			size = fmt.Sprintf("%d", a.Size)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Role, status, size, a.Path)
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}
	return len(assets.Missing(list)), nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
