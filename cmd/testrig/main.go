// Testrig Core - Embedded Integration Test Rig
//
// This is the main entry point for the Testrig Core daemon. It loads the
// rig configuration, installs the configured connectors and auxiliaries,
// and optionally runs a proxy owner that shares one physical connector
// across several proxy channels.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/testrig-core/migrations"

	"github.com/nerrad567/testrig-core/internal/binder"
	"github.com/nerrad567/testrig-core/internal/builtin"
	"github.com/nerrad567/testrig-core/internal/infrastructure/config"
	"github.com/nerrad567/testrig-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/testrig-core/internal/infrastructure/logging"
	"github.com/nerrad567/testrig-core/internal/process"
	"github.com/nerrad567/testrig-core/internal/proxy"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Testrig Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Start supervised worker processes (protocol daemons, brokers)
	workers, err := startWorkers(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}
	defer func() {
		for i := len(workers) - 1; i >= 0; i-- {
			log.Info("stopping worker", "name", cfg.Workers[i].Name)
			if stopErr := workers[i].Stop(); stopErr != nil {
				log.Error("error stopping worker", "name", cfg.Workers[i].Name, "error", stopErr)
			}
		}
	}()

	// Install the configured components
	b := binder.New(builtin.NewRegistry())
	b.SetLogger(log)
	if installErr := b.Install(ctx, cfg.ComponentSpecs()); installErr != nil {
		return fmt.Errorf("installing components: %w", installErr)
	}
	defer func() {
		log.Info("uninstalling components")
		if uninstallErr := b.Uninstall(context.Background()); uninstallErr != nil {
			log.Error("error uninstalling components", "error", uninstallErr)
		}
	}()
	ns := b.Namespace()
	log.Info("components installed", "entries", len(ns.Names()))

	// Start the proxy owner (if enabled)
	var owner *proxy.Owner
	if cfg.Proxy.Enabled {
		owner, err = startProxy(ctx, cfg, ns, log)
		if err != nil {
			return fmt.Errorf("starting proxy: %w", err)
		}
		defer func() {
			log.Info("stopping proxy owner")
			owner.Stop()
		}()
	} else {
		log.Info("proxy disabled")
	}

	// Connect to InfluxDB (optional) and flush traffic stats on a ticker
	if cfg.InfluxDB.Enabled {
		influxClient, connectErr := influxdb.Connect(cfg.InfluxDB)
		if connectErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connectErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		if owner != nil {
			go statsLoop(ctx, cfg, owner, influxClient)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. Proxy owner (if enabled)
	// 3. Component uninstall
	// 4. Workers

	log.Info("Testrig Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TESTRIG_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TESTRIG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startWorkers starts one supervisor per configured worker.
//
// On failure, already-started workers are stopped before returning.
func startWorkers(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]*process.Supervisor, error) {
	supervisors := make([]*process.Supervisor, 0, len(cfg.Workers))
	for _, w := range cfg.Workers {
		sup := process.New(process.Config{
			Name:           w.Name,
			Binary:         w.Binary,
			Args:           w.Args,
			Restart:        w.RestartOnFailure,
			BackoffInitial: time.Duration(w.RestartDelaySeconds) * time.Second,
			MaxRestarts:    w.MaxRestartAttempts,
		})
		sup.SetLogger(log)

		log.Info("starting worker", "name", w.Name, "binary", w.Binary)
		if err := sup.Start(ctx); err != nil {
			for i := len(supervisors) - 1; i >= 0; i-- {
				_ = supervisors[i].Stop()
			}
			return nil, fmt.Errorf("starting worker %q: %w", w.Name, err)
		}
		supervisors = append(supervisors, sup)
	}
	return supervisors, nil
}

// startProxy resolves the physical connector and starts a proxy owner
// with the configured thread and multiprocess channels attached.
func startProxy(ctx context.Context, cfg *config.Config, ns *binder.Namespace, log *logging.Logger) (*proxy.Owner, error) {
	conn, err := ns.Connector(ctx, cfg.Proxy.Connector)
	if err != nil {
		return nil, fmt.Errorf("resolving proxy connector %q: %w", cfg.Proxy.Connector, err)
	}

	owner := proxy.NewOwner(conn)
	owner.SetLogger(log)

	for _, name := range cfg.Proxy.Channels {
		ch := proxy.NewChannel(name)
		ch.SetLogger(log)
		if openErr := ch.Open(ctx); openErr != nil {
			return nil, fmt.Errorf("opening channel %q: %w", name, openErr)
		}
		if attachErr := owner.Attach(ch); attachErr != nil {
			return nil, fmt.Errorf("attaching channel %q: %w", name, attachErr)
		}
	}

	for _, name := range cfg.Proxy.MpChannels {
		ch, newErr := proxy.NewMpChannel(name, cfg.Proxy.QueueDir)
		if newErr != nil {
			return nil, fmt.Errorf("creating mp channel %q: %w", name, newErr)
		}
		ch.SetLogger(log)
		if openErr := ch.Open(ctx); openErr != nil {
			return nil, fmt.Errorf("opening mp channel %q: %w", name, openErr)
		}
		if attachErr := owner.AttachMp(ch); attachErr != nil {
			return nil, fmt.Errorf("attaching mp channel %q: %w", name, attachErr)
		}
	}

	if startErr := owner.Start(ctx); startErr != nil {
		return nil, fmt.Errorf("starting owner: %w", startErr)
	}
	log.Info("proxy owner started",
		"connector", cfg.Proxy.Connector,
		"channels", len(cfg.Proxy.Channels),
		"mp_channels", len(cfg.Proxy.MpChannels),
	)

	return owner, nil
}

// statsLoop periodically writes owner traffic counters to InfluxDB.
// Runs until the context is cancelled.
func statsLoop(ctx context.Context, cfg *config.Config, owner *proxy.Owner, client *influxdb.Client) {
	ticker := time.NewTicker(cfg.GetStatsInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := owner.Stats()
			client.WriteProxyStats(cfg.Proxy.Connector,
				s.RxFrames, s.TxFrames, s.RxBytes, s.TxBytes, s.Attached)
		}
	}
}
