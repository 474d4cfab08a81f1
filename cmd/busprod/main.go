// BusPro Core - HDL BusPro to MQTT bridge
//
// This is the main entry point for the BusPro Core daemon. It bridges an
// HDL BusPro field bus (reached via a UDP gateway) to a home-automation
// platform over MQTT Discovery, and serves a realtime WebSocket surface
// for the admin and end-user UIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edmondoalex/buspro-core/internal/api"
	"github.com/edmondoalex/buspro-core/internal/core"
	"github.com/edmondoalex/buspro-core/internal/history"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/config"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/influxdb"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/logging"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/mqtt"
	"github.com/edmondoalex/buspro-core/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BusPro Core",
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
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	if cfg.Debug.Enabled {
		cfg.Logging.Level = "debug"
	}
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the JSON state store (corrupt files are quarantined)
	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	log.Info("state store loaded", "path", cfg.Store.Path)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
		"client_id", cfg.MQTT.ClientID,
	)

	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Open state history (optional)
	var historyRepo *history.Repository
	if cfg.History.Enabled {
		historyRepo, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history db: %w", err)
		}
		defer func() {
			if closeErr := historyRepo.Close(); closeErr != nil {
				log.Error("error closing history db", "error", closeErr)
			}
		}()
		log.Info("state history enabled", "path", cfg.History.Path)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Construct and start the core
	c := core.New(core.Options{
		Config:  cfg,
		Logger:  log,
		Store:   st,
		MQTT:    mqttClient,
		History: historyRepo,
		Influx:  influxClient,
	})

	// HTTP surface (registers the WebSocket hub on the core)
	server := api.NewServer(cfg, c, log)

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("starting core: %w", err)
	}
	defer func() {
		log.Info("stopping core")
		c.Stop()
	}()

	// Serve HTTP until shutdown
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error", "error", err)
	}

	log.Info("BusPro Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BUSPRO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BUSPRO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
