// Package cli implements the memgate command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memgate/memgate/config"
	"github.com/memgate/memgate/gateway"
	"github.com/memgate/memgate/internal/logger"
	"github.com/memgate/memgate/memory"
	"github.com/memgate/memgate/protocol"
	"github.com/memgate/memgate/session"
	"github.com/memgate/memgate/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "memgate",
	Short: "Per-user memory gateway",
	Long: `memgate exposes per-user memory over a tool-calling protocol.
Each user identity gets its own isolated session and memory space,
reachable at /{identity}/sse and /{identity}/messages.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the memgate gateway",
	Run:   runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run:   runConfigShow,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the memgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("memgate", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting memgate", zap.String("version", Version))

	sessStore, err := newSessionStore(cfg.Session)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer func() { _ = sessStore.Close() }()

	memStore, err := newMemoryStore(cfg.Memory)
	if err != nil {
		logger.Fatal("Failed to open memory store", zap.Error(err))
	}
	defer func() { _ = memStore.Close() }()

	manager := session.NewManager(session.Deps{
		Store:       sessStore,
		NewProtocol: protocolFactory(cfg.Memory, memStore),
	})
	defer manager.Close()

	srv := gateway.NewServer(cfg.Gateway, manager, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Gateway failed", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown failed", zap.Error(err))
		}
	}
}

// protocolFactory builds the per-identity protocol server. The memory
// tools are constructed with the bound identity so every store and
// search call is scoped to it.
func protocolFactory(cfg config.MemoryConfig, store memory.Store) session.ProtocolFactory {
	return func(id string) (*protocol.Server, error) {
		registry := protocol.NewRegistry()
		ts := tools.NewMemoryToolSet(store, id, cfg.QuotaMax, cfg.SearchLimit)
		if err := ts.Register(registry); err != nil {
			return nil, err
		}
		return protocol.NewServer(registry, protocol.ServerInfo{
			Name:    "memgate",
			Version: Version,
		}), nil
	}
}

func newSessionStore(cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "json":
		return session.NewJSONFileStore(cfg.DataDir)
	default:
		return session.NewSQLiteStore(cfg.DataDir)
	}
}

func newMemoryStore(cfg config.MemoryConfig) (memory.Store, error) {
	switch cfg.Backend {
	case "remote":
		return memory.NewRemoteStore(cfg.RemoteURL, cfg.APIKey), nil
	default:
		return memory.NewSQLiteStore(cfg.Path)
	}
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Current Configuration:")
	fmt.Printf("  Gateway:         %s\n", cfg.Gateway.Addr())
	fmt.Printf("  Session backend: %s\n", cfg.Session.Backend)
	fmt.Printf("  Memory backend:  %s\n", cfg.Memory.Backend)
	fmt.Printf("  Quota max:       %d\n", cfg.Memory.QuotaMax)
	fmt.Printf("  Search limit:    %d\n", cfg.Memory.SearchLimit)
	fmt.Printf("  Log level:       %s\n", cfg.Log.Level)
}
