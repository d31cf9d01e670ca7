package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noona-project/warden/pkg/api"
	"github.com/noona-project/warden/pkg/catalog"
	"github.com/noona-project/warden/pkg/config"
	"github.com/noona-project/warden/pkg/history"
	"github.com/noona-project/warden/pkg/install"
	"github.com/noona-project/warden/pkg/lifecycle"
	"github.com/noona-project/warden/pkg/log"
	"github.com/noona-project/warden/pkg/metrics"
	"github.com/noona-project/warden/pkg/runtime"
	"github.com/noona-project/warden/pkg/volume"
	"github.com/noona-project/warden/pkg/wizard"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "warden",
	Short:   "Warden - container orchestration control plane for the Noona stack",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Warden version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Warden control plane HTTP API",
	Long: `Serve resolves a Docker Engine endpoint, loads the service catalog,
and starts the Control-Plane HTTP API: service install/status, logs,
health probes, and the four-step setup wizard.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "0.0.0.0:4001", "Address for the Control-Plane HTTP API")
	serveCmd.Flags().String("docker-host", "", "Docker Engine endpoint override (defaults to platform auto-detection)")
	serveCmd.Flags().String("cert-dir", "", "Directory holding TLS client certs for a tcp:// Docker endpoint")
	serveCmd.Flags().String("data-dir", "./warden-data", "Directory for the volume driver's bind-mount roots and the wizard state cache")
	serveCmd.Flags().Int("history-capacity", 500, "Number of history entries retained per service before the oldest are dropped")
	serveCmd.Flags().Bool("enable-pprof", false, "Enable pprof profiling endpoints on a separate server at 127.0.0.1:6060")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("main")

	addr, _ := cmd.Flags().GetString("addr")
	dockerHost, _ := cmd.Flags().GetString("docker-host")
	certDir, _ := cmd.Flags().GetString("cert-dir")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	historyCapacity, _ := cmd.Flags().GetInt("history-capacity")
	pprofEnabled, _ := cmd.Flags().GetBool("enable-pprof")

	cfg := config.Load()
	if dockerHost == "" {
		dockerHost = cfg.DockerHost
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("runtime", false, "resolving docker endpoint")
	metrics.RegisterComponent("wizard-store", false, "initializing")
	metrics.RegisterComponent("api", false, "initializing")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runtimeClient, err := runtime.Resolve(ctx, runtime.ResolveOptions{
		Endpoint: dockerHost,
		CertDir:  certDir,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve docker endpoint: %w", err)
	}
	defer runtimeClient.Close()
	metrics.RegisterComponent("runtime", true, "connected")
	logger.Info().Msg("resolved docker endpoint")

	cat, err := catalog.Load(runtimeClient)
	if err != nil {
		return fmt.Errorf("failed to load service catalog: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	volumes, err := volume.NewLocalDriver(filepath.Join(dataDir, "volumes"))
	if err != nil {
		return fmt.Errorf("failed to create volume driver: %w", err)
	}

	hist := history.NewStore(historyCapacity)
	engine := lifecycle.NewEngine(runtimeClient, volumes, hist)

	kvToken, _ := cfg.VaultTokenFor("noona")
	kvStore := wizard.NewKVStore(cfg.HostServiceURL, kvToken, 0)

	cache, err := wizard.OpenCache(filepath.Join(dataDir, "wizard.db"))
	if err != nil {
		return fmt.Errorf("failed to open wizard cache: %w", err)
	}
	defer cache.Close()

	wiz := wizard.NewService(kvStore, cache)
	metrics.RegisterComponent("wizard-store", true, "ready")
	coordinator := install.NewCoordinator(cat, engine, hist, wiz)

	collector := metrics.NewCollector(cat, runtimeClient, wiz)
	collector.Start()
	defer collector.Stop()

	if pprofEnabled {
		pprofAddr := "127.0.0.1:6060"
		go func() {
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				logger.Warn().Err(err).Msg("pprof server error")
			}
		}()
		logger.Info().Str("addr", pprofAddr).Msg("pprof enabled")
	}

	server := api.NewServer(cat, coordinator, hist, engine, wiz)

	metrics.RegisterComponent("api", true, "ready")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting control-plane API")
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	return nil
}
