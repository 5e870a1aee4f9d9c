// rushd is the Rush Delivery tracking service: an in-memory parcel and
// fleet state store behind a REST API, with a WebSocket hub that pushes
// state changes and heartbeats to connected dashboards in real time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rushdelivery/rush-core/internal/api"
	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/infrastructure/config"
	"github.com/rushdelivery/rush-core/internal/infrastructure/logging"
	"github.com/rushdelivery/rush-core/internal/infrastructure/mqtt"
	"github.com/rushdelivery/rush-core/internal/infrastructure/telemetry"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rushd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local development keeps secrets in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("starting rushd", "version", version, "service", cfg.Service.Name)

	store := tracking.NewStore()
	store.SetLogger(logger.With("component", "tracking"))
	store.SetStatusOrderEnforced(cfg.Tracking.EnforceStatusOrder)

	if cfg.Tracking.SeedDemoData {
		if err := tracking.SeedDemoData(store); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo data seeded")
	}

	guard := auth.NewGuard(cfg.Security.JWT.Secret, cfg.Security.AdminKey, cfg.Security.JWT.TokenTTL)

	// Optional event bridge: relay state changes onto MQTT when a broker
	// is configured. Startup does not depend on the broker being up.
	var broker *mqtt.Client
	if cfg.MQTT.Enabled {
		broker, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			logger.Warn("mqtt bridge unavailable", "error", err)
		} else {
			defer broker.Close()
			// Store subscribers run under the emit lock; the relay keeps
			// broker round-trips off it.
			relay := mqtt.NewRelay(broker, 0)
			relay.SetOnError(func(err error) {
				logger.Debug("mqtt publish failed", "error", err)
			})
			defer relay.Close()
			store.Subscribe(relay.Enqueue)
			logger.Info("mqtt event bridge connected", "host", cfg.MQTT.Broker.Host)
		}
	}

	// Optional telemetry: record status transitions and fleet positions
	// for offline analysis.
	var metrics *telemetry.Client
	if cfg.Telemetry.Enabled {
		metrics, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			logger.Warn("telemetry unavailable", "error", err)
		} else {
			defer metrics.Close()
			metrics.SetOnError(func(err error) {
				logger.Debug("telemetry write failed", "error", err)
			})
			store.Subscribe(func(ev tracking.Event) {
				switch payload := ev.Payload.(type) {
				case *tracking.Parcel:
					metrics.WriteParcelStatus(payload.TrackingID, string(payload.Status))
				case *tracking.Driver:
					metrics.WriteDriverLocation(payload.ID, payload.CurrentLocation.Lat, payload.CurrentLocation.Lng)
				}
			})
			logger.Info("telemetry connected", "url", cfg.Telemetry.URL)
		}
	}

	deps := api.Deps{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Guard:   guard,
		Version: version,
	}
	if metrics != nil {
		deps.OnTick = metrics.WriteConnectionGauge
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := server.Close(); err != nil {
		logger.Error("api server close failed", "error", err)
	}

	logger.Info("rushd stopped")
	return nil
}
