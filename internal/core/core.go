package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
	"github.com/edmondoalex/buspro-core/internal/discovery"
	"github.com/edmondoalex/buspro-core/internal/history"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/config"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/influxdb"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/logging"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/mqtt"
	"github.com/edmondoalex/buspro-core/internal/store"
)

// Broadcaster fans out realtime events to WebSocket clients.
// Implemented by the api Hub; nil disables broadcasts.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Core owns all long-lived state and wires the gateway, the store, the
// MQTT bridge, and the realtime hub together. It is constructed once at
// startup and threaded through the HTTP surface; there is no module-level
// mutable state.
type Core struct {
	cfg    *config.Config
	logger *logging.Logger

	registry *device.Registry
	store    *store.Store
	last     *store.LastValues

	gateway *buspro.Gateway
	mqtt    *mqtt.Client
	topics  mqtt.Topics
	disco   *discovery.Builder

	hub     Broadcaster
	history *history.Repository
	influx  *influxdb.Client

	done chan struct{}
}

// Options bundles the collaborators for New.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Store   *store.Store
	MQTT    *mqtt.Client
	History *history.Repository // optional
	Influx  *influxdb.Client    // optional
}

// New constructs the core, loads persisted devices, and prepares (but does
// not start) the gateway.
func New(opts Options) *Core {
	cfg := opts.Config
	topics := mqtt.NewTopics(cfg.MQTT.Prefix)

	c := &Core{
		cfg:      cfg,
		logger:   opts.Logger,
		registry: device.NewRegistry(),
		store:    opts.Store,
		last:     store.NewLastValues(),
		mqtt:     opts.MQTT,
		topics:   topics,
		disco:    discovery.NewBuilder(cfg.MQTT.DiscoveryPrefix, cfg.Gateway.Host, cfg.Gateway.Port, topics),
		history:  opts.History,
		influx:   opts.Influx,
		done:     make(chan struct{}),
	}

	c.registry.SetLogger(opts.Logger)

	c.gateway = buspro.NewGateway(buspro.Config{
		Transport: buspro.TransportConfig{
			GatewayHost:   cfg.Gateway.Host,
			GatewayPort:   cfg.Gateway.Port,
			LocalUDPPort:  cfg.Gateway.LocalUDPPort,
			LocalIP:       cfg.Gateway.LocalIP,
			DebugTelegram: cfg.Debug.Telegram,
		},
		SendInterval: cfg.GetSendInterval(),
		PollInterval: cfg.GetPollInterval(),
	}, opts.Logger.With("component", "gateway"))

	// Load persisted devices and seed the last-value cache.
	c.registry.Load(c.store.Devices(), c.store.UI().CoverGroups)
	seed := make(map[string]string)
	for key, raw := range c.store.States() {
		seed[key] = string(raw)
	}
	c.last.Seed(seed)

	return c
}

// SetHub attaches the realtime broadcaster. Call before Start.
func (c *Core) SetHub(hub Broadcaster) {
	c.hub = hub
}

// Registry exposes the device registry (read paths for the HTTP surface).
func (c *Core) Registry() *device.Registry {
	return c.registry
}

// Gateway exposes the bus gateway (sniffer and diagnostics).
func (c *Core) Gateway() *buspro.Gateway {
	return c.gateway
}

// Store exposes the persistence layer (backup/restore and UI config).
func (c *Core) Store() *store.Store {
	return c.store
}

// History exposes the state-change audit trail (may be nil).
func (c *Core) History() *history.Repository {
	return c.history
}

// Start wires listeners, starts the gateway, publishes discovery, and
// subscribes to command topics.
func (c *Core) Start(ctx context.Context) error {
	// Bus state fan-out.
	c.gateway.SetOnLightState(c.onLightState)
	c.gateway.SetOnCoverState(c.onCoverState)
	c.gateway.SetOnReading(c.onReading)

	// Device mutations: flush, republish discovery, broadcast device lists.
	c.registry.SetOnChange(c.onRegistryChange)

	// Configure engines for persisted devices so calibrated travel times
	// apply before the first command.
	for _, cov := range c.registry.Covers() {
		c.gateway.EnsureCover(cov.Address, cov.OpeningTimeUp, cov.OpeningTimeDown, cov.StartDelay)
	}
	for _, l := range c.registry.Lights() {
		c.gateway.EnsureLight(l.Address)
	}

	if err := c.gateway.Start(); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}

	// Discovery + subscriptions run on every (re)connect: brokers without
	// retained persistence forget both across restarts.
	c.mqtt.SetOnConnect(func() {
		c.logger.Info("MQTT (re)connected, republishing discovery")
		c.PublishAllDiscovery()
		c.subscribeCommands()
	})
	c.PublishAllDiscovery()
	c.subscribeCommands()

	// History retention.
	if c.history != nil && c.cfg.History.RetentionDays > 0 {
		go c.pruneHistoryLoop(ctx)
	}

	c.logger.Info("core started", "devices", c.registry.Counts())
	return nil
}

// Stop shuts down workers and flushes the store.
func (c *Core) Stop() {
	close(c.done)
	c.gateway.Stop()
	if err := c.FlushStore(); err != nil {
		c.logger.Error("final store flush failed", "error", err)
	}
}

// FlushStore persists the current registry and state snapshot.
func (c *Core) FlushStore() error {
	c.store.SetDevices(c.registry.Snapshot())
	c.store.SetCoverGroups(c.registry.CoverGroups())
	return c.store.Flush()
}

// onRegistryChange reacts to device mutations.
func (c *Core) onRegistryChange(kind device.Kind) {
	if err := c.FlushStore(); err != nil {
		c.logger.Error("store flush failed", "error", err)
	}

	c.publishDiscoveryFor(kind)

	if c.hub != nil {
		if kind == device.KindCoverGroup {
			c.hub.Broadcast("cover_groups", c.registry.CoverGroups())
		} else {
			c.hub.Broadcast("devices", c.registry.Snapshot())
		}
	}
}

// pruneHistoryLoop enforces history retention once a day.
func (c *Core) pruneHistoryLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	retention := time.Duration(c.cfg.History.RetentionDays) * 24 * time.Hour
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.history.Prune(ctx, retention); err != nil {
				c.logger.Warn("history prune failed", "error", err)
			} else if n > 0 {
				c.logger.Info("history pruned", "rows", n)
			}
		}
	}
}

// Snapshot is the initial payload sent to a connecting WebSocket client.
type Snapshot struct {
	Devices     device.Devices             `json:"devices"`
	CoverGroups []device.CoverGroup        `json:"cover_groups"`
	States      map[string]json.RawMessage `json:"states"`
	UI          store.UIConfig             `json:"ui"`
	Meta        Meta                       `json:"meta"`
}

// Meta reports gateway connectivity for the admin surface.
type Meta struct {
	GatewayHost    string `json:"gateway_host"`
	GatewayPort    int    `json:"gateway_port"`
	TransportReady bool   `json:"transport_ready"`
	SendTarget     string `json:"send_target"`
	LastRX         string `json:"last_rx,omitempty"`
	MQTTConnected  bool   `json:"mqtt_connected"`
}

// GetSnapshot builds the initial client snapshot.
func (c *Core) GetSnapshot() Snapshot {
	return Snapshot{
		Devices:     c.registry.Snapshot(),
		CoverGroups: c.registry.CoverGroups(),
		States:      c.store.States(),
		UI:          c.store.UI(),
		Meta:        c.GetMeta(),
	}
}

// GetMeta reports current connectivity.
func (c *Core) GetMeta() Meta {
	host, port := c.gateway.SendTarget()
	return Meta{
		GatewayHost:    c.cfg.Gateway.Host,
		GatewayPort:    c.cfg.Gateway.Port,
		TransportReady: c.gateway.TransportReady(),
		SendTarget:     fmt.Sprintf("%s:%d", host, port),
		LastRX:         c.gateway.LastRX(),
		MQTTConnected:  c.mqtt.IsConnected(),
	}
}
