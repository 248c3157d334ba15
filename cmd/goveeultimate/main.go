// Command goveeultimate runs the device-command protocol engine.
//
// It bridges a catalog of typed device states to the vendor's cloud
// MQTT channel and REST polling API: desired values become binary
// command frames wrapped in cloud envelopes, inbound reports are parsed
// back into typed state, and every published command is tracked until a
// device report confirms it or its TTL expires.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/constructorfleet/govee-ultimate-sub000/migrations"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/api"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/auth"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/device"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/config"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/database"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/influxdb"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/logging"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/mqtt"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/iot"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/journal"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/rest"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
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
	log.Info("starting command engine",
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
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the state catalog
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading state catalog: %w", err)
	}

	// Initialise device registry from the cached metadata
	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(deviceRepo, cat)
	registry.SetLogger(log)

	if restoreErr := registry.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring device registry: %w", restoreErr)
	}
	log.Info("device registry restored", "devices", registry.Count())

	// Initialise the token store for the REST channel
	tokenStore := auth.NewStore(auth.NewTokenRepository(db.DB), auth.DefaultTokenName)
	if initErr := tokenStore.Initialize(ctx); initErr != nil {
		return fmt.Errorf("loading token store: %w", initErr)
	}

	// Connect to the cloud MQTT broker
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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB for state history (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub carries coordinator events to API clients
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Command journal records lifecycle events for later inspection
	journalRepo := journal.NewSQLiteRepository(db.DB)
	record := func(event, deviceID, stateName, commandID string, details map[string]any) {
		entry := journal.Entry{
			Event:     event,
			DeviceID:  deviceID,
			State:     stateName,
			CommandID: commandID,
			Details:   details,
		}
		if err := journalRepo.Create(ctx, &entry); err != nil {
			log.Warn("recording journal entry", "event", event, "error", err)
		}
	}

	// Command coordinator: the single owner of pending-command tracking
	coordinator := iot.NewCoordinator(mqttClient, iot.Config{
		AccountTopic: cfg.Account.Topic,
		CommandTTL:   cfg.CommandTTL(),
		Logger:       log,
		OnUpdate: func(update iot.Update) {
			handleReport(registry, hub, influxClient, log, update)
		},
		OnAck: func(cmd iot.PendingCommand) {
			// A commandId echo removes the coordinator's tracking entry,
			// so the state-level expectation must be cleared here too or
			// it would outlive every sweep. ClearCommands is idempotent
			// when a structural match already cleared it.
			if err := registry.WithDevice(cmd.DeviceID, func(d *device.Device) error {
				d.ClearCommands(cmd.CommandID)
				return nil
			}); err != nil {
				log.Debug("ack for unknown device", "device_id", cmd.DeviceID)
			}
			hub.Broadcast(api.ChannelCommandCleared, map[string]any{
				"command_id": cmd.CommandID,
				"device_id":  cmd.DeviceID,
				"state":      cmd.Payload.Name,
			})
			if influxClient != nil {
				influxClient.WriteCommandEvent(cmd.DeviceID, cmd.Payload.Name, cmd.CommandID, influxdb.EventCleared)
			}
			record(journal.EventCleared, cmd.DeviceID, cmd.Payload.Name, cmd.CommandID, nil)
		},
		OnExpire: func(cmd iot.PendingCommand) {
			// Drop the stale command from the device's per-state queues
			// so its expectations stop matching future reports.
			if err := registry.WithDevice(cmd.DeviceID, func(d *device.Device) error {
				d.ClearCommands(cmd.CommandID)
				return nil
			}); err != nil {
				log.Debug("expired command for unknown device", "device_id", cmd.DeviceID)
			}
			hub.Broadcast(api.ChannelCommandExpired, map[string]any{
				"command_id": cmd.CommandID,
				"device_id":  cmd.DeviceID,
				"state":      cmd.Payload.Name,
			})
			if influxClient != nil {
				influxClient.WriteCommandEvent(cmd.DeviceID, cmd.Payload.Name, cmd.CommandID, influxdb.EventExpired)
			}
			record(journal.EventExpired, cmd.DeviceID, cmd.Payload.Name, cmd.CommandID, map[string]any{
				"expired_at": cmd.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		},
	})
	defer func() {
		log.Info("stopping command coordinator")
		coordinator.Stop()
	}()

	// Published commands also land in the journal on their way out
	publisher := &journalingPublisher{Coordinator: coordinator, record: record}

	// Inbound cloud messages flow straight into the coordinator
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // Validated to 0..2 by config
	if err := mqttClient.Subscribe(cfg.Account.Topic, qos, coordinator.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to account topic: %w", err)
	}
	log.Info("subscribed to cloud channel", "topic", cfg.Account.Topic)

	// REST polling channel: discovery plus slow-path state refresh
	restClient := rest.NewClient(rest.ClientConfig{
		BaseURL: cfg.REST.BaseURL,
		Timeout: cfg.RESTTimeout(),
	}, tokenStore)
	poller := rest.NewPoller(restClient, rest.PollerConfig{
		Interval: cfg.PollInterval(),
		Logger:   log,
		Handler: func(snapshot rest.Snapshot) {
			handleSnapshot(ctx, registry, hub, influxClient, log, snapshot)
		},
	})
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("starting device poller: %w", err)
	}
	defer func() {
		log.Info("stopping device poller")
		poller.Stop()
	}()

	// HTTP API and WebSocket event feed
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		Commands:    publisher,
		Journal:     journalRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, poller, coordinator, InfluxDB, MQTT, database.

	log.Info("command engine stopped")
	return nil
}

// handleReport feeds a normalized cloud report into the owning device
// and fans the resulting state out to the event feed and state history.
func handleReport(registry *device.Registry, hub *api.Hub, influxClient *influxdb.Client, log *logging.Logger, update iot.Update) {
	var snapshot map[string]any
	err := registry.WithDevice(update.DeviceID, func(d *device.Device) error {
		d.ParseReport(update.Report)
		snapshot = d.Snapshot()
		return nil
	})
	if err != nil {
		// Reports for devices this build does not model are routine.
		log.Debug("report for unknown device", "device_id", update.DeviceID)
		return
	}

	hub.Broadcast(api.ChannelStateChanged, map[string]any{
		"device_id": update.DeviceID,
		"state":     snapshot,
	})
	if influxClient != nil {
		influxClient.WriteStateSnapshot(update.DeviceID, snapshot)
	}
}

// handleSnapshot registers newly discovered devices and feeds polled
// structured state into the parser.
func handleSnapshot(ctx context.Context, registry *device.Registry, hub *api.Hub, influxClient *influxdb.Client, log *logging.Logger, snapshot rest.Snapshot) {
	if _, err := registry.Register(ctx, snapshot.Metadata); err != nil {
		log.Warn("skipping polled device",
			"device_id", snapshot.Metadata.DeviceID,
			"model", snapshot.Metadata.Model,
			"error", err,
		)
		return
	}

	if len(snapshot.State) == 0 {
		return
	}

	var parsed map[string]any
	err := registry.WithDevice(snapshot.Metadata.DeviceID, func(d *device.Device) error {
		d.Parse(map[string]any{"state": snapshot.State})
		parsed = d.Snapshot()
		return nil
	})
	if err != nil {
		return
	}

	hub.Broadcast(api.ChannelStateChanged, map[string]any{
		"device_id": snapshot.Metadata.DeviceID,
		"state":     parsed,
	})
	if influxClient != nil {
		influxClient.WriteStateSnapshot(snapshot.Metadata.DeviceID, parsed)
	}
}

// journalingPublisher records a journal entry for every command the API
// publishes, then delegates to the coordinator.
type journalingPublisher struct {
	*iot.Coordinator
	record func(event, deviceID, stateName, commandID string, details map[string]any)
}

func (p *journalingPublisher) Publish(deviceID, topic string, payload state.CommandPayload) (iot.PendingCommand, error) {
	cmd, err := p.Coordinator.Publish(deviceID, topic, payload)
	if err != nil {
		return cmd, err
	}
	p.record(journal.EventPublished, deviceID, payload.Name, cmd.CommandID, map[string]any{
		"opcode": payload.Opcode,
	})
	return cmd, nil
}

// getConfigPath returns the configuration file path.
// Uses GOVEE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GOVEE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
