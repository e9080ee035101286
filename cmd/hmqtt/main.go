// hmqtt - HomeMatic CCU to MQTT bridge
//
// This is the main entry point for the hmqtt bridge. It connects a
// HomeMatic CCU (via its XML-RPC interface process) to an MQTT broker,
// translating raw device events into stable named topics and inbound
// command messages into CCU set-value calls. Supported devices are
// announced to Home Assistant through retained discovery configs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtdcr/hmqtt/internal/bridge"
	"github.com/mtdcr/hmqtt/internal/homematic"
	"github.com/mtdcr/hmqtt/internal/infrastructure/config"
	"github.com/mtdcr/hmqtt/internal/infrastructure/database"
	"github.com/mtdcr/hmqtt/internal/infrastructure/influxdb"
	"github.com/mtdcr/hmqtt/internal/infrastructure/logging"
	"github.com/mtdcr/hmqtt/internal/infrastructure/mqtt"
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

// Timeouts for startup and shutdown calls against the CCU.
const (
	ccuCallTimeout     = 30 * time.Second
	ccuShutdownTimeout = 5 * time.Second

	// statsInterval is how often bridge throughput counters are written
	// to InfluxDB (when enabled).
	statsInterval = time.Minute
)

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
	log.Info("starting hmqtt",
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

	// Open the recorder database (optional)
	var recorder *homematic.Recorder
	if cfg.Recorder.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Recorder.Database.Path,
			WALMode:     cfg.Recorder.Database.WALMode,
			BusyTimeout: cfg.Recorder.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening recorder database: %w", dbErr)
		}
		defer func() {
			log.Info("closing recorder database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing recorder database", "error", closeErr)
			}
		}()
		log.Info("recorder database connected", "path", db.Path())

		recorder = homematic.NewRecorder(db.DB)
		recorder.SetLogger(log)
		if startErr := recorder.Start(); startErr != nil {
			return fmt.Errorf("starting recorder: %w", startErr)
		}
		defer recorder.Stop()
	} else {
		log.Info("recorder disabled")
	}

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
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Create the CCU client and the callback server it reports back to
	ccuClient := homematic.NewClient(cfg.HomeMatic.Address, cfg.HomeMatic.InterfaceID)
	ccuServer := homematic.NewServer(cfg.HomeMatic.InterfaceID, log)

	if startErr := ccuServer.Start(cfg.HomeMatic.Listen.Host, cfg.HomeMatic.Listen.Port); startErr != nil {
		return fmt.Errorf("starting callback server: %w", startErr)
	}
	defer func() {
		log.Info("stopping callback server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), ccuShutdownTimeout)
		defer stopCancel()
		if stopErr := ccuServer.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping callback server", "error", stopErr)
		}
	}()

	callbackURL, err := ccuServer.URL()
	if err != nil {
		return fmt.Errorf("resolving callback URL: %w", err)
	}
	log.Info("callback server listening", "url", callbackURL)

	// Fetch the device list and build the registry
	listCtx, listCancel := context.WithTimeout(ctx, ccuCallTimeout)
	descriptions, err := ccuClient.ListDevices(listCtx)
	listCancel()
	if err != nil {
		return fmt.Errorf("listing CCU devices: %w", err)
	}
	log.Info("CCU device list fetched", "descriptions", len(descriptions))

	if recorder != nil {
		for _, desc := range descriptions {
			recorder.RecordDevice(desc)
		}
	}

	inventory := make([]bridge.DeviceInfo, 0)
	for _, summary := range homematic.Inventory(descriptions) {
		inventory = append(inventory, bridge.DeviceInfo{
			Address:  summary.Address,
			Model:    summary.Model,
			Firmware: summary.Firmware,
		})
	}

	scheme := bridge.TopicScheme{
		Namespace:          cfg.Bridge.Namespace,
		DiscoveryNamespace: cfg.Bridge.DiscoveryNamespace,
	}

	registry := bridge.NewRegistry(scheme)
	if err := registry.Register(inventory); err != nil {
		return fmt.Errorf("registering devices: %w", err)
	}
	log.Info("device registry built", "devices", registry.DeviceCount())

	// Telemetry is nil when InfluxDB is disabled; the bridge skips recording.
	var telemetry bridge.Telemetry
	if influxClient != nil {
		telemetry = influxClient
	}

	// Create and start the bridge
	b, err := bridge.New(bridge.Options{
		Registry:         registry,
		Scheme:           scheme,
		MQTT:             &mqttBridgeAdapter{client: mqttClient},
		Controller:       ccuClient,
		Telemetry:        telemetry,
		Logger:           log,
		QoS:              byte(cfg.MQTT.QoS), // #nosec G115 -- validated to 0..2 by config
		EventQueueSize:   cfg.Bridge.EventQueueSize,
		CommandQueueSize: cfg.Bridge.CommandQueueSize,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := b.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()

	// Wire CCU callbacks into the bridge (and the recorder, when enabled)
	ccuServer.SetOnEvent(func(address string, channel int, parameter string, value any) {
		b.EnqueueEvent(bridge.RawEvent{
			Address:   address,
			Channel:   channel,
			Parameter: parameter,
			Value:     value,
			Time:      time.Now(),
		})
		if recorder != nil {
			recorder.RecordEvent(address, channel, parameter, value)
		}
	})
	ccuServer.SetOnNewDevices(func(descriptions []homematic.DeviceDescription) {
		log.Info("CCU announced devices", "descriptions", len(descriptions))
		if recorder != nil {
			for _, desc := range descriptions {
				recorder.RecordDevice(desc)
			}
		}
	})

	// Republish discovery and retained state after every broker reconnect
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		b.OnReconnect()
	})

	// Register the callback URL so the CCU starts delivering events
	initCtx, initCancel := context.WithTimeout(ctx, ccuCallTimeout)
	err = ccuClient.Init(initCtx, callbackURL)
	initCancel()
	if err != nil {
		return fmt.Errorf("registering with CCU: %w", err)
	}
	defer func() {
		log.Info("unregistering from CCU")
		// The signal context is already cancelled during shutdown;
		// give the deinit call its own deadline.
		deinitCtx, deinitCancel := context.WithTimeout(context.Background(), ccuShutdownTimeout)
		defer deinitCancel()
		if deinitErr := ccuClient.Deinit(deinitCtx, callbackURL); deinitErr != nil {
			log.Error("error unregistering from CCU", "error", deinitErr)
		}
	}()
	log.Info("registered with CCU",
		"address", cfg.HomeMatic.Address,
		"interface_id", cfg.HomeMatic.InterfaceID,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, ccuClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Emit periodic throughput counters (only useful with InfluxDB)
	if influxClient != nil {
		go reportStats(ctx, b, influxClient)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. CCU deinit
	// 2. Bridge stop
	// 3. Callback server stop
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Recorder and its database (if enabled)

	stats := b.Stats()
	log.Info("hmqtt stopped",
		"events_in", stats.EventsIn,
		"published", stats.Published,
		"commands_in", stats.CommandsIn,
		"dropped", stats.Dropped,
	)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HMQTT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HMQTT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all collaborator connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - ccuClient: CCU client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, ccuClient *homematic.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, ccuShutdownTimeout)
	defer cancel()
	if err := ccuClient.Ping(pingCtx); err != nil {
		return fmt.Errorf("ccu: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// reportStats periodically writes bridge throughput counters to InfluxDB
// until the context is cancelled.
func reportStats(ctx context.Context, b *bridge.Bridge, influxClient *influxdb.Client) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := b.Stats()
			influxClient.WriteBridgeStats(stats.EventsIn, stats.Published, stats.CommandsIn, stats.Dropped)
		}
	}
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MessagingClient interface. The client's Subscribe takes a named handler
// type; the bridge declares the bare function signature.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MessagingClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MessagingClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, handler)
}

// IsConnected implements bridge.MessagingClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
