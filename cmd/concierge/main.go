// Command concierge runs the multi-domain orchestration service: HTTP front
// end, supervisor, domain executors, and the SQLite checkpoint store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge/pkg/capability"
	"concierge/pkg/config"
	"concierge/pkg/eventlog"
	"concierge/pkg/executor"
	"concierge/pkg/httpapi"
	"concierge/pkg/ledger"
	"concierge/pkg/logx"
	"concierge/pkg/metrics"
	"concierge/pkg/proto"
	"concierge/pkg/supervisor"
	"concierge/pkg/tools"
	"concierge/pkg/uievent"
)

// Version information, set by the release pipeline via ldflags.
var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (defaults apply if missing)")
		addr        = flag.String("addr", "", "Listen address override, e.g. :8080")
		dbPath      = flag.String("db", "", "Checkpoint store path override")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("concierge %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	os.Exit(run(*configPath, *addr, *dbPath))
}

// run contains the main application logic and returns an exit code so defers
// execute before the process exits.
func run(configPath, addr, dbPath string) int {
	logger := logx.NewLogger("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	store, err := ledger.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open checkpoint store: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close store: %v", closeErr)
		}
	}()

	domainTools := make(map[string][]string, len(cfg.Domains))
	for name, domainCfg := range cfg.Domains {
		domainTools[name] = domainCfg.Tools
	}
	registry, err := capability.NewRegistry(domainTools, tools.List())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build capability registry: %v\n", err)
		return 1
	}

	provider := tools.NewRegistryProvider()

	var exec executor.DomainExecutor
	switch cfg.Executor.Kind {
	case config.ExecutorAnthropic:
		exec, err = executor.NewAnthropicExecutor(cfg.Executor, provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create executor: %v\n", err)
			return 1
		}
	default:
		exec = executor.NewScriptedExecutor(provider)
	}
	logger.Info("using %s executor", cfg.Executor.Kind)

	audit, err := eventlog.NewWriter(cfg.EventLog.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open audit log: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := audit.Close(); closeErr != nil {
			logger.Warn("failed to close audit log: %v", closeErr)
		}
	}()

	events := uievent.NewChannel(cfg.Server.EventBuffer)
	recorder := metrics.NewPrometheusRecorder()

	sup := supervisor.New(cfg, store, registry, exec, events, audit, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.StartSweeper(ctx)

	server := httpapi.NewServer(cfg, sup, events)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed: %v", err)
			return 1
		}
		return 0
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed: %v", err)
		return 1
	}

	if err := audit.WriteRecord(proto.NewRecord(proto.RecordShutdown, "")); err != nil {
		logger.Warn("failed to write shutdown record: %v", err)
	}

	logger.Info("shutdown complete")
	return 0
}
