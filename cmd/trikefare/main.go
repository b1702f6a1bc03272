package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NERVsystems/trikefare/pkg/config"
	"github.com/NERVsystems/trikefare/pkg/metrics"
	"github.com/NERVsystems/trikefare/pkg/server"
	"github.com/NERVsystems/trikefare/pkg/version"
)

var (
	showVersion    bool
	debug          bool
	configPath     string
	metricsAddr    string
	generateConfig string
)

func init() {
	flag.BoolVar(&showVersion, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./config.yaml or ./configs/config.yaml if present)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090 (overrides metrics.addr)")
	flag.StringVar(&generateConfig, "generate-config", "", "Generate a Claude Desktop Client config file at the specified path")
}

func main() {
	flag.Parse()

	// Show version and exit if requested
	if showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trikefare: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg, debug)
	slog.SetDefault(logger)

	// Generate Claude Desktop config if requested
	if generateConfig != "" {
		if err := generateClientConfig(generateConfig, configPath); err != nil {
			logger.Error("failed to generate config", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully generated Claude Desktop Client config", "path", generateConfig)
		return
	}

	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		go serveMetrics(logger, cfg.Metrics.Addr, m)
	}

	logger.Info("starting fare estimator MCP server",
		"version", version.BuildVersion,
		"city", cfg.City,
		"locate_mode", cfg.Locate.Mode,
		"metrics_addr", cfg.Metrics.Addr)

	srv, err := server.NewServer(cfg, m, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	logger.Info("server initialized, waiting for requests")
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLogger writes to w (stderr in production; stdout carries the MCP protocol).
func newLogger(w io.Writer, cfg *config.Config, debug bool) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serveMetrics(logger *slog.Logger, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}

// generateClientConfig creates or updates a Claude Desktop Client config file
func generateClientConfig(outputPath, cfgPath string) error {
	logger := slog.Default()

	if outputPath == "" {
		return errors.New("output path must not be empty")
	}
	if filepath.Ext(outputPath) != ".json" {
		return fmt.Errorf("output path %q must have a .json extension", outputPath)
	}
	for _, part := range strings.Split(filepath.ToSlash(outputPath), "/") {
		if part == ".." {
			return fmt.Errorf("output path %q must not contain ..", outputPath)
		}
	}

	// Get absolute path to executable
	execPath, err := os.Executable()
	if err != nil {
		execPath = os.Args[0] // Fallback to args if cannot get executable path
	}
	absExecPath, err := filepath.Abs(execPath)
	if err != nil {
		absExecPath = execPath
	}

	args := []string{}
	if cfgPath != "" {
		absCfg, err := filepath.Abs(cfgPath)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "-config", absCfg)
	}

	serverConfig := map[string]interface{}{
		"command": absExecPath,
		"args":    args,
	}

	var clientConfig map[string]interface{}

	if data, err := os.ReadFile(outputPath); err == nil {
		if err := json.Unmarshal(data, &clientConfig); err != nil {
			logger.Warn("existing config is not valid JSON, will create new", "error", err)
			clientConfig = nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read existing config: %w", err)
	}
	if clientConfig == nil {
		clientConfig = make(map[string]interface{})
	}

	mcpServers, ok := clientConfig["mcpServers"].(map[string]interface{})
	if !ok {
		mcpServers = make(map[string]interface{})
		clientConfig["mcpServers"] = mcpServers
	}
	mcpServers[server.ServerName] = serverConfig

	data, err := json.MarshalIndent(clientConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(outputPath, 0600)
}
