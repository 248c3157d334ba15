package iot

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// DefaultCommandTTL is how long a published command stays pending before
// the expiry sweep removes it.
const DefaultCommandTTL = 30 * time.Second

// Publisher sends JSON documents to the cloud broker. *mqtt.Client
// satisfies this interface.
type Publisher interface {
	PublishJSON(topic string, value any) error
}

// Logger defines the logging interface for the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PendingCommand tracks one published command until a matching
// acknowledgement arrives or its deadline passes. Commands are immutable
// once tracked.
type PendingCommand struct {
	CommandID string
	DeviceID  string
	Payload   state.CommandPayload
	ExpiresAt time.Time
}

// Update is a normalized inbound report, ready for state parsing.
type Update struct {
	// DeviceID identifies the reporting device.
	DeviceID string

	// Report is the payload in the shape the parse layer consumes.
	Report state.Report

	// Payload is the full flattened document, for consumers that need
	// fields outside the report sections.
	Payload map[string]any
}

// Config holds configuration for the coordinator.
type Config struct {
	// AccountTopic is stamped into every published envelope.
	AccountTopic string

	// CommandTTL bounds how long a command stays pending.
	// Defaults to DefaultCommandTTL.
	CommandTTL time.Duration

	// OnUpdate receives every normalized inbound report.
	OnUpdate func(Update)

	// OnAck is called when an inbound message acknowledges a pending
	// command, after the command has been dropped from tracking.
	OnAck func(PendingCommand)

	// OnExpire is called for each command removed by an expiry sweep.
	OnExpire func(PendingCommand)

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger Logger
}

// Coordinator owns the cloud-channel command lifecycle: it publishes
// command envelopes, tracks each command until acknowledgement or expiry,
// and normalizes inbound envelopes for the parsing layer.
//
// All tracking state is owned by a single goroutine. Broker callbacks and
// caller methods marshal onto that goroutine, so no locking is needed
// around the pending map. Expiry is driven by a timer re-armed to the
// soonest pending deadline rather than a fixed tick.
type Coordinator struct {
	publisher    Publisher
	accountTopic string
	ttl          time.Duration
	clock        func() time.Time
	logger       Logger

	onUpdate func(Update)
	onAck    func(PendingCommand)
	onExpire func(PendingCommand)

	ops     chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// Owned by the run loop. Never touched from other goroutines.
	pending map[string]PendingCommand
	timer   *time.Timer
}

// NewCoordinator creates a coordinator publishing through the given
// publisher and starts its event loop.
//
// Parameters:
//   - publisher: Transport for outbound envelopes (typically the MQTT client)
//   - cfg: Coordinator configuration
//
// Returns:
//   - *Coordinator: Running coordinator; callers must Stop() it on shutdown
func NewCoordinator(publisher Publisher, cfg Config) *Coordinator {
	if cfg.CommandTTL <= 0 {
		cfg.CommandTTL = DefaultCommandTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	c := &Coordinator{
		publisher:    publisher,
		accountTopic: cfg.AccountTopic,
		ttl:          cfg.CommandTTL,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		onUpdate:     cfg.OnUpdate,
		onAck:        cfg.OnAck,
		onExpire:     cfg.OnExpire,
		ops:          make(chan func(), 16),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		pending:      make(map[string]PendingCommand),
		timer:        timer,
	}
	go c.run()
	return c
}

// run is the coordinator's event loop. Every mutation of the pending map
// happens here, within one loop turn.
func (c *Coordinator) run() {
	defer close(c.stopped)
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.timer.C:
			c.sweep(c.clock())
			c.rearm()
		case <-c.done:
			c.timer.Stop()
			return
		}
	}
}

// do posts an operation onto the event loop without waiting for it.
func (c *Coordinator) do(op func()) error {
	select {
	case c.ops <- op:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// call posts an operation onto the event loop and waits for it to finish.
func (c *Coordinator) call(op func()) error {
	ran := make(chan struct{})
	if err := c.do(func() {
		op()
		close(ran)
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-c.stopped:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Publish sends a command payload to the device's command topic and tracks
// it until acknowledgement or expiry.
//
// A command id is assigned when the payload does not carry one. The
// returned PendingCommand records the deadline; nothing is tracked when the
// underlying publish fails.
//
// Parameters:
//   - deviceID: Owning device, recorded for expiry routing
//   - topic: Device command topic (see mqtt.Topics.DeviceCommand)
//   - payload: Queued command drained from a device state
//
// Returns:
//   - PendingCommand: The tracked command with its expiry deadline
//   - error: nil on success, or the publish/lifecycle failure
func (c *Coordinator) Publish(deviceID, topic string, payload state.CommandPayload) (PendingCommand, error) {
	if topic == "" {
		return PendingCommand{}, ErrEmptyTopic
	}

	var (
		cmd    PendingCommand
		pubErr error
	)
	err := c.call(func() {
		now := c.clock()
		if payload.CommandID == "" {
			payload.CommandID = uuid.NewString()
		}
		envelope := commandEnvelope(topic, c.accountTopic, payload.CommandID, payload, now)
		if pubErr = c.publisher.PublishJSON(topic, envelope); pubErr != nil {
			return
		}
		cmd = PendingCommand{
			CommandID: payload.CommandID,
			DeviceID:  deviceID,
			Payload:   payload,
			ExpiresAt: now.Add(c.ttl),
		}
		c.pending[cmd.CommandID] = cmd
		c.rearm()
		c.logger.Debug("published command",
			"command_id", cmd.CommandID,
			"device_id", deviceID,
			"topic", topic,
		)
	})
	if err != nil {
		return PendingCommand{}, err
	}
	if pubErr != nil {
		return PendingCommand{}, pubErr
	}
	return cmd, nil
}

// RequestRefresh asks the device behind topic to report its full state.
// Refresh requests are fire-and-forget and are not tracked.
func (c *Coordinator) RequestRefresh(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	var pubErr error
	if err := c.call(func() {
		pubErr = c.publisher.PublishJSON(topic, refreshEnvelope(topic, c.accountTopic, c.clock()))
	}); err != nil {
		return err
	}
	return pubErr
}

// HandleMessage ingests a raw broker message. It matches the MQTT client's
// MessageHandler signature so it can be passed to Subscribe directly; the
// client invokes it on its own network goroutine, and this method marshals
// the decoded payload onto the coordinator's loop before any tracking state
// is touched.
//
// Payloads that do not name a device are dropped. A payload carrying the
// commandId of a tracked command acknowledges it; the update callback then
// receives the normalized report either way.
func (c *Coordinator) HandleMessage(_ string, raw []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrBadEnvelope, err)
	}

	flat := Flatten(payload)
	deviceID := deviceIDFrom(flat)
	if deviceID == "" {
		c.logger.Debug("dropped payload without device id")
		return nil
	}
	return c.do(func() {
		c.ingest(deviceID, flat)
	})
}

func (c *Coordinator) ingest(deviceID string, flat map[string]any) {
	if id, ok := flat["commandId"].(string); ok {
		if cmd, held := c.pending[id]; held {
			delete(c.pending, id)
			c.rearm()
			c.logger.Debug("command acknowledged", "command_id", id, "device_id", deviceID)
			if c.onAck != nil {
				c.onAck(cmd)
			}
		}
	}
	if c.onUpdate != nil {
		c.onUpdate(Update{
			DeviceID: deviceID,
			Report:   state.ReportFromMap(flat),
			Payload:  flat,
		})
	}
}

// ExpireCommands removes and returns every pending command whose deadline
// has passed, invoking the expiry callback for each. This sweep is the only
// path by which a command that never received an acknowledgement leaves the
// pending map. The timer drives it automatically; callers may also invoke
// it directly.
func (c *Coordinator) ExpireCommands() ([]PendingCommand, error) {
	var expired []PendingCommand
	if err := c.call(func() {
		expired = c.sweep(c.clock())
		c.rearm()
	}); err != nil {
		return nil, err
	}
	return expired, nil
}

// sweep runs on the loop goroutine.
func (c *Coordinator) sweep(now time.Time) []PendingCommand {
	var expired []PendingCommand
	for id, cmd := range c.pending {
		if !cmd.ExpiresAt.After(now) {
			expired = append(expired, cmd)
			delete(c.pending, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	for _, cmd := range expired {
		c.logger.Debug("command expired", "command_id", cmd.CommandID, "device_id", cmd.DeviceID)
		if c.onExpire != nil {
			c.onExpire(cmd)
		}
	}
	return expired
}

// rearm points the expiry timer at the soonest pending deadline, or leaves
// it disarmed when nothing is pending. Runs on the loop goroutine.
func (c *Coordinator) rearm() {
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}

	var next time.Time
	for _, cmd := range c.pending {
		if next.IsZero() || cmd.ExpiresAt.Before(next) {
			next = cmd.ExpiresAt
		}
	}
	if next.IsZero() {
		return
	}
	delay := next.Sub(c.clock())
	if delay < 0 {
		delay = 0
	}
	c.timer.Reset(delay)
}

// Pending returns a snapshot of the tracked commands, ordered by command id.
func (c *Coordinator) Pending() ([]PendingCommand, error) {
	var snapshot []PendingCommand
	if err := c.call(func() {
		snapshot = make([]PendingCommand, 0, len(c.pending))
		for _, cmd := range c.pending {
			snapshot = append(snapshot, cmd)
		}
	}); err != nil {
		return nil, err
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CommandID < snapshot[j].CommandID
	})
	return snapshot, nil
}

// Stop shuts the event loop down, cancelling the expiry timer. Commands
// still pending are dropped without callbacks. Safe to call more than once.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}
