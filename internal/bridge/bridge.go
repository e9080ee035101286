package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Bridge operation constants.
const (
	// commandTimeout bounds each controller set-value call.
	commandTimeout = 5 * time.Second

	// defaultEventQueueSize buffers controller events when none configured.
	defaultEventQueueSize = 256

	// defaultCommandQueueSize buffers inbound commands when none configured.
	defaultCommandQueueSize = 64
)

// MessagingClient is the interface to the broker collaborator.
// Satisfied by *mqtt.Client (via adapter in main.go); mockable in tests.
type MessagingClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Controller is the interface to the controller collaborator's synchronous
// set-value call.
type Controller interface {
	SetValue(ctx context.Context, address string, channel int, parameter string, value any) error
}

// Telemetry records translated values as time series. Optional; if nil the
// bridge operates without recording.
type Telemetry interface {
	WriteDatapoint(address string, channel int, datapoint string, value float64)
	WriteAvailability(address string, online bool)
}

// Logger is the structured logger interface.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Stats holds the bridge's throughput counters since start.
type Stats struct {
	EventsIn   uint64
	Published  uint64
	CommandsIn uint64
	Dropped    uint64
}

type inboundMessage struct {
	topic   string
	payload []byte
}

// Bridge orchestrates bidirectional translation between the controller and
// the broker. It handles:
//   - Receiving raw controller events and publishing translated state
//   - Receiving command messages and issuing controller set-value calls
//   - Discovery publication, re-run idempotently after broker reconnects
//   - Graceful shutdown
//
// Controller events and inbound commands flow through two bounded queues so
// neither transport callback ever blocks. All state-cache writes happen on
// the event loop (single-writer discipline).
type Bridge struct {
	registry  *Registry
	cache     *StateCache
	events    *EventTranslator
	commands  *CommandTranslator
	discovery *DiscoveryPublisher
	scheme    TopicScheme

	mqtt       MessagingClient
	controller Controller
	telemetry  Telemetry
	qos        byte

	eventQueue   chan RawEvent
	commandQueue chan inboundMessage
	reconnect    chan struct{}

	stats struct {
		eventsIn   atomic.Uint64
		published  atomic.Uint64
		commandsIn atomic.Uint64
		dropped    atomic.Uint64
	}

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	logger   Logger
	loggerMu sync.RWMutex
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Registry is the populated device registry.
	Registry *Registry

	// Scheme derives all topics.
	Scheme TopicScheme

	// MQTT is the broker client.
	MQTT MessagingClient

	// Controller issues set-value calls.
	Controller Controller

	// Telemetry is optional; if nil, no time-series recording happens.
	Telemetry Telemetry

	// Logger is optional structured logger.
	Logger Logger

	// QoS for all publications and subscriptions.
	QoS byte

	// EventQueueSize and CommandQueueSize bound the two inbound queues.
	// Zero selects the defaults.
	EventQueueSize   int
	CommandQueueSize int
}

// New creates a new bridge instance. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	eventQueueSize := opts.EventQueueSize
	if eventQueueSize <= 0 {
		eventQueueSize = defaultEventQueueSize
	}
	commandQueueSize := opts.CommandQueueSize
	if commandQueueSize <= 0 {
		commandQueueSize = defaultCommandQueueSize
	}

	cache := NewStateCache()

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		registry:     opts.Registry,
		cache:        cache,
		events:       NewEventTranslator(opts.Registry, cache, opts.Scheme),
		commands:     NewCommandTranslator(opts.Registry),
		discovery:    NewDiscoveryPublisher(opts.Registry, opts.Scheme),
		scheme:       opts.Scheme,
		mqtt:         opts.MQTT,
		controller:   opts.Controller,
		telemetry:    opts.Telemetry,
		qos:          opts.QoS,
		eventQueue:   make(chan RawEvent, eventQueueSize),
		commandQueue: make(chan inboundMessage, commandQueueSize),
		reconnect:    make(chan struct{}, 1),
		done:         make(chan struct{}),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		logger:       opts.Logger,
	}

	return b, nil
}

// Start begins bridge operation: subscribes to command topics, publishes
// the initial discovery configs, and starts the event and command loops.
func (b *Bridge) Start() error {
	for address, model := range b.registry.Unsupported() {
		b.logWarn("unsupported device model excluded", "address", address, "model", model)
	}

	filter := b.scheme.CommandFilter()
	if err := b.mqtt.Subscribe(filter, b.qos, b.handleInbound); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", filter)

	if err := b.publishDiscovery(); err != nil {
		return fmt.Errorf("initial discovery publication: %w", err)
	}

	b.wg.Add(2)
	go b.eventLoop()
	go b.commandLoop()

	b.logInfo("bridge started",
		"devices", b.registry.DeviceCount(),
		"namespace", b.scheme.Namespace)

	return nil
}

// Stop gracefully shuts down the bridge. Queued items that have not begun
// processing are discarded; in-flight controller calls are cancelled.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		b.wg.Wait()

		b.logInfo("bridge stopped")
	})
}

// EnqueueEvent hands a raw controller event to the event loop.
// Never blocks: if the queue is full, the event is dropped with a warning.
// Safe to call from transport callbacks.
func (b *Bridge) EnqueueEvent(ev RawEvent) {
	select {
	case b.eventQueue <- ev:
		b.stats.eventsIn.Add(1)
	default:
		b.stats.dropped.Add(1)
		b.logWarn("event queue full, dropping event",
			"address", ev.Address,
			"channel", ev.Channel,
			"parameter", ev.Parameter)
	}
}

// OnReconnect signals that the broker connection was re-established.
// The event loop re-publishes all discovery configs and retained states
// before resuming event processing. Never blocks; coalesces repeats.
func (b *Bridge) OnReconnect() {
	select {
	case b.reconnect <- struct{}{}:
	default:
	}
}

// Stats returns the throughput counters since start.
func (b *Bridge) Stats() Stats {
	return Stats{
		EventsIn:   b.stats.eventsIn.Load(),
		Published:  b.stats.published.Load(),
		CommandsIn: b.stats.commandsIn.Load(),
		Dropped:    b.stats.dropped.Load(),
	}
}

// handleInbound is the MQTT subscription callback. It only enqueues;
// translation happens on the command loop.
func (b *Bridge) handleInbound(topic string, payload []byte) error {
	msg := inboundMessage{topic: topic, payload: payload}
	select {
	case b.commandQueue <- msg:
		b.stats.commandsIn.Add(1)
	default:
		b.stats.dropped.Add(1)
		b.logWarn("command queue full, dropping message", "topic", topic)
	}
	return nil
}

// eventLoop is the sole writer of the state cache. It drains the reconnect
// signal with priority so discovery state matches the registry before any
// further event is processed.
func (b *Bridge) eventLoop() {
	defer b.wg.Done()

	for {
		// Reconnect republication takes priority over pending events.
		select {
		case <-b.done:
			return
		case <-b.reconnect:
			b.republish()
			continue
		default:
		}

		select {
		case <-b.done:
			return
		case <-b.reconnect:
			b.republish()
		case ev := <-b.eventQueue:
			b.processEvent(ev)
		}
	}
}

// commandLoop translates inbound messages and issues controller calls.
func (b *Bridge) commandLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case msg := <-b.commandQueue:
			b.processCommand(msg)
		}
	}
}

// processEvent translates one raw event and publishes its results.
// Translation failures are logged and dropped, never fatal.
func (b *Bridge) processEvent(ev RawEvent) {
	pubs, err := b.events.Translate(ev)
	if err != nil {
		b.logWarn("event rejected",
			"address", ev.Address,
			"channel", ev.Channel,
			"parameter", ev.Parameter,
			"error", err)
		return
	}

	for _, pub := range pubs {
		b.publish(pub)
	}

	if len(pubs) > 0 {
		b.recordTelemetry(ev)
	}
}

// processCommand translates one inbound message and issues the controller
// call with a bounded timeout.
func (b *Bridge) processCommand(msg inboundMessage) {
	cmd, err := b.commands.Translate(msg.topic, msg.payload)
	if err != nil {
		b.logWarn("command rejected", "topic", msg.topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.controller.SetValue(ctx, cmd.Address, cmd.Channel, cmd.Parameter, cmd.Value); err != nil {
		b.logError("controller call failed",
			fmt.Errorf("%w: %s:%d %s=%v: %w", ErrControllerCall, cmd.Address, cmd.Channel, cmd.Parameter, cmd.Value, err))
		return
	}

	b.logDebug("controller call issued",
		"address", cmd.Address,
		"channel", cmd.Channel,
		"parameter", cmd.Parameter,
		"value", cmd.Value)
}

// republish re-runs the idempotent discovery publication and restores
// retained state topics from the cache after a broker reconnect.
func (b *Bridge) republish() {
	if err := b.publishDiscovery(); err != nil {
		b.logError("discovery republication failed", err)
	}

	for _, rec := range b.cache.Snapshot() {
		// Availability lives under a reserved cache key with no datapoint
		// spec; restore it on the per-device availability topic so the
		// discovery configs referencing it see a retained value again.
		if rec.Channel == maintenanceChannel && rec.Datapoint == availabilityDatapoint {
			payload := payloadOffline
			if online, ok := rec.Entry.Value.(bool); ok && online {
				payload = payloadOnline
			}
			b.publish(Publication{
				Topic:    b.scheme.Availability(rec.Address),
				Payload:  []byte(payload),
				Retained: true,
			})
			continue
		}

		ch, ok := b.registry.Lookup(rec.Address, rec.Channel)
		if !ok {
			continue
		}
		dp, ok := ch.Role.Datapoint(rec.Datapoint)
		if !ok {
			continue
		}
		b.publish(Publication{
			Topic:    b.scheme.State(rec.Address, rec.Channel, rec.Datapoint),
			Payload:  dp.Encode(rec.Entry.Value),
			Retained: true,
		})
	}

	b.logInfo("discovery and retained state republished")
}

// publishDiscovery emits every discovery config. Byte-identical on
// identical registry state, so repeated invocations are safe.
func (b *Bridge) publishDiscovery() error {
	configs, err := b.discovery.Configs()
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		b.publish(Publication{Topic: cfg.Topic, Payload: cfg.Payload, Retained: true})
	}

	b.logInfo("discovery configs published", "count", len(configs))
	return nil
}

func (b *Bridge) publish(pub Publication) {
	if err := b.mqtt.Publish(pub.Topic, pub.Payload, b.qos, pub.Retained); err != nil {
		b.logError("publish failed", fmt.Errorf("%s: %w", pub.Topic, err))
		return
	}
	b.stats.published.Add(1)
}

// recordTelemetry forwards numeric and boolean observations to the
// optional time-series sink.
func (b *Bridge) recordTelemetry(ev RawEvent) {
	if b.telemetry == nil {
		return
	}

	if ev.Channel == maintenanceChannel && ev.Parameter == paramUnreach {
		if unreach, ok := ev.Value.(bool); ok {
			b.telemetry.WriteAvailability(ev.Address, !unreach)
		}
		return
	}

	ch, ok := b.registry.Lookup(ev.Address, ev.Channel)
	if !ok {
		return
	}
	dp, ok := ch.Role.DatapointByParameter(ev.Parameter)
	if !ok {
		return
	}
	entry, found := b.cache.Get(ev.Address, ev.Channel, dp.Name)
	if !found {
		return
	}

	switch v := entry.Value.(type) {
	case int:
		b.telemetry.WriteDatapoint(ev.Address, ev.Channel, dp.Name, float64(v))
	case bool:
		val := 0.0
		if v {
			val = 1.0
		}
		b.telemetry.WriteDatapoint(ev.Address, ev.Channel, dp.Name, val)
	}
}

// getLogger returns the current logger (may be nil).
func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// SetLogger replaces the bridge's logger. Safe for concurrent use.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}
