package discovery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edmondoalex/buspro-core/internal/device"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/mqtt"
)

// Platform device metadata shared by every entity.
const (
	manufacturer = "HDL"
	model        = "BusPro"
)

// Config is an MQTT Discovery entity payload.
//
// Only the fields used by at least one entity class are modelled; omitempty
// keeps each published payload minimal.
type Config struct {
	Name             string `json:"name"`
	UniqueID         string `json:"unique_id"`
	Device           Device `json:"device"`
	AvailabilityT    string `json:"availability_topic"`
	PayloadAvailable string `json:"payload_available"`
	PayloadOffline   string `json:"payload_not_available"`

	Schema          string `json:"schema,omitempty"`
	StateTopic      string `json:"state_topic,omitempty"`
	CommandTopic    string `json:"command_topic,omitempty"`
	Brightness      bool   `json:"brightness,omitempty"`
	BrightnessScale int    `json:"brightness_scale,omitempty"`

	PositionTopic    string `json:"position_topic,omitempty"`
	SetPositionTopic string `json:"set_position_topic,omitempty"`
	ValueTemplate    string `json:"value_template,omitempty"`
	PositionTemplate string `json:"position_template,omitempty"`
	PayloadOpen      string `json:"payload_open,omitempty"`
	PayloadClose     string `json:"payload_close,omitempty"`
	PayloadStop      string `json:"payload_stop,omitempty"`
	StateOpen        string `json:"state_open,omitempty"`
	StateClosed      string `json:"state_closed,omitempty"`
	StateOpening     string `json:"state_opening,omitempty"`
	StateClosing     string `json:"state_closing,omitempty"`
	StateStopped     string `json:"state_stopped,omitempty"`
	PositionOpen     *int   `json:"position_open,omitempty"`
	PositionClosed   *int   `json:"position_closed,omitempty"`
	Optimistic       bool   `json:"optimistic,omitempty"`
	AssumedState     bool   `json:"assumed_state,omitempty"`

	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	PayloadOn         string `json:"payload_on,omitempty"`
	PayloadOff        string `json:"payload_off,omitempty"`
	JSONAttributesT   string `json:"json_attributes_topic,omitempty"`

	Icon string `json:"icon,omitempty"`
}

// Device groups entities under one logical platform device.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Builder constructs discovery topics and payloads for one gateway.
//
// Object IDs derive from the bus address (never the name) so renames do
// not create duplicate entities on the platform.
type Builder struct {
	prefix string // discovery prefix, e.g. "homeassistant"
	nodeID string
	topics mqtt.Topics
}

// NewBuilder creates a discovery builder.
//
// Parameters:
//   - discoveryPrefix: Discovery topic prefix (default "homeassistant")
//   - gatewayHost, gatewayPort: Identify this gateway in node and unique IDs
//   - topics: State/command topic builder
func NewBuilder(discoveryPrefix, gatewayHost string, gatewayPort int, topics mqtt.Topics) *Builder {
	return &Builder{
		prefix: strings.TrimSuffix(discoveryPrefix, "/"),
		nodeID: NodeID(gatewayHost, gatewayPort),
		topics: topics,
	}
}

// NodeID derives the discovery node identifier from the gateway endpoint.
func NodeID(host string, port int) string {
	return fmt.Sprintf("buspro_%s_%d", strings.ReplaceAll(host, ".", "_"), port)
}

var slugRe = regexp.MustCompile(`[^a-z0-9_\- ]+`)
var spaceRe = regexp.MustCompile(`[\s\-]+`)

// Slugify normalizes a category or name into a topic-safe identifier.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, "_")
	if s == "" {
		return "device"
	}
	return s
}

// categoryDevice groups entities by user-defined category.
func (b *Builder) categoryDevice(category, fallback string) Device {
	if strings.TrimSpace(category) == "" {
		category = fallback
	}
	return Device{
		Identifiers:  []string{"buspro:category:" + Slugify(category)},
		Name:         "BusPro " + category,
		Manufacturer: manufacturer,
		Model:        model,
	}
}

func (b *Builder) availability(c *Config) {
	c.AvailabilityT = b.topics.Availability()
	c.PayloadAvailable = "online"
	c.PayloadOffline = "offline"
}

// Light builds the discovery entry for a light channel.
//
// Returns:
//   - string: Retained discovery topic
//   - Config: Entity payload (JSON schema; brightness when dimmable)
func (b *Builder) Light(l device.Light) (string, Config) {
	a := l.Address
	oid := fmt.Sprintf("light_%d_%d_%d", a.Subnet, a.Device, a.Channel)

	cfg := Config{
		Name:         defaultName(l.Name, fmt.Sprintf("Light %s", a)),
		UniqueID:     fmt.Sprintf("%s_%s", b.nodeID, oid),
		Schema:       "json",
		StateTopic:   b.topics.LightState(int(a.Subnet), int(a.Device), int(a.Channel)),
		CommandTopic: b.topics.LightCommand(int(a.Subnet), int(a.Device), int(a.Channel)),
		Device:       b.categoryDevice(l.Category, "Lights"),
		Icon:         l.Icon,
	}
	b.availability(&cfg)

	if l.Dimmable {
		cfg.Brightness = true
		cfg.BrightnessScale = 255
	}

	return fmt.Sprintf("%s/light/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// coverPayload fills the fields shared by covers and cover groups.
func (b *Builder) coverPayload(cfg *Config, stateTopic string) {
	open, closed := 100, 0
	cfg.StateTopic = stateTopic
	cfg.PositionTopic = stateTopic
	cfg.ValueTemplate = "{{ value_json.state }}"
	cfg.PositionTemplate = "{{ value_json.position }}"
	cfg.PayloadOpen = "OPEN"
	cfg.PayloadClose = "CLOSE"
	cfg.PayloadStop = "STOP"
	cfg.StateOpen = "open"
	cfg.StateClosed = "closed"
	cfg.StateOpening = "opening"
	cfg.StateClosing = "closing"
	cfg.StateStopped = "stopped"
	cfg.PositionOpen = &open
	cfg.PositionClosed = &closed
}

// Cover builds the discovery entry for a positional cover.
func (b *Builder) Cover(c device.Cover) (string, Config) {
	a := c.Address
	oid := fmt.Sprintf("cover_%d_%d_%d", a.Subnet, a.Device, a.Channel)

	cfg := Config{
		Name:             defaultName(c.Name, fmt.Sprintf("Cover %s", a)),
		UniqueID:         fmt.Sprintf("%s_%s", b.nodeID, oid),
		CommandTopic:     b.topics.CoverCommand(int(a.Subnet), int(a.Device), int(a.Channel)),
		SetPositionTopic: b.topics.CoverPositionCommand(int(a.Subnet), int(a.Device), int(a.Channel)),
		Device:           b.categoryDevice(c.Category, "Cover"),
		Icon:             c.Icon,
	}
	b.availability(&cfg)
	b.coverPayload(&cfg, b.topics.CoverState(int(a.Subnet), int(a.Device), int(a.Channel)))

	return fmt.Sprintf("%s/cover/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// CoverNoPct builds the "no-%" clone of a cover: OPEN/CLOSE/STOP only,
// assumed state, raw command topic bypassing position logic. Used when
// platform-side position is unreliable.
func (b *Builder) CoverNoPct(c device.Cover) (string, Config) {
	a := c.Address
	oid := fmt.Sprintf("cover_%d_%d_%d_no_pct", a.Subnet, a.Device, a.Channel)

	cfg := Config{
		Name:         defaultName(c.Name, fmt.Sprintf("Cover %s", a)) + " no%",
		UniqueID:     fmt.Sprintf("%s_%s", b.nodeID, oid),
		CommandTopic: b.topics.CoverRawCommand(int(a.Subnet), int(a.Device), int(a.Channel)),
		PayloadOpen:  "OPEN",
		PayloadClose: "CLOSE",
		PayloadStop:  "STOP",
		Optimistic:   true,
		AssumedState: true,
		Device: Device{
			Identifiers:  []string{"buspro:cover_no_pct:" + b.nodeID},
			Name:         "BusPro Cover no %",
			Manufacturer: manufacturer,
			Model:        model,
		},
		Icon: c.Icon,
	}
	b.availability(&cfg)

	return fmt.Sprintf("%s/cover/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// CoverGroup builds the discovery entry for a cover group, keyed by its
// stable ID.
func (b *Builder) CoverGroup(g device.CoverGroup) (string, Config) {
	oid := "group_" + g.ID

	cfg := Config{
		Name:             defaultName(g.Name, "Cover Group"),
		UniqueID:         fmt.Sprintf("%s_cover_group_%s", b.nodeID, g.ID),
		CommandTopic:     b.topics.CoverGroupCommand(g.ID),
		SetPositionTopic: b.topics.CoverGroupPositionCommand(g.ID),
		Device:           b.categoryDevice(g.Category, "Cover"),
		Icon:             g.Icon,
	}
	b.availability(&cfg)
	b.coverPayload(&cfg, b.topics.CoverGroupState(g.ID))

	return fmt.Sprintf("%s/cover/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// CoverGroupNoPct builds the "no-%" clone of a cover group.
func (b *Builder) CoverGroupNoPct(g device.CoverGroup) (string, Config) {
	oid := "group_" + g.ID + "_no_pct"

	cfg := Config{
		Name:         defaultName(g.Name, "Cover Group") + " no%",
		UniqueID:     fmt.Sprintf("%s_cover_group_%s_no_pct", b.nodeID, g.ID),
		CommandTopic: b.topics.CoverGroupRawCommand(g.ID),
		PayloadOpen:  "OPEN",
		PayloadClose: "CLOSE",
		PayloadStop:  "STOP",
		Optimistic:   true,
		AssumedState: true,
		Device: Device{
			Identifiers:  []string{"buspro:cover_no_pct:" + b.nodeID},
			Name:         "BusPro Cover no %",
			Manufacturer: manufacturer,
			Model:        model,
		},
		Icon: g.Icon,
	}
	b.availability(&cfg)

	return fmt.Sprintf("%s/cover/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// Sensor builds the discovery entry for a numeric sensor.
func (b *Builder) Sensor(s device.Sensor) (string, Config) {
	a := s.Address

	var oidPrefix, deviceClass, unit, fallbackCat string
	switch s.Kind {
	case device.KindHumidity:
		oidPrefix, deviceClass, unit, fallbackCat = "humidity", "humidity", "%", "Humidity"
	case device.KindIlluminance:
		oidPrefix, deviceClass, unit, fallbackCat = "illuminance", "illuminance", "lx", "Illuminance"
	default:
		oidPrefix, deviceClass, unit, fallbackCat = "temp", "temperature", "°C", "Temperature"
	}

	oid := fmt.Sprintf("%s_%d_%d_%d", oidPrefix, a.Subnet, a.Device, a.Channel)

	cfg := Config{
		Name:              defaultName(s.Name, fmt.Sprintf("%s %s", fallbackCat, a)),
		UniqueID:          fmt.Sprintf("%s_%s", b.nodeID, oid),
		StateTopic:        b.topics.SensorState(oidPrefix, int(a.Subnet), int(a.Device), int(a.Channel)),
		DeviceClass:       deviceClass,
		StateClass:        "measurement",
		UnitOfMeasurement: unit,
		Device:            b.categoryDevice("", fallbackCat),
	}
	b.availability(&cfg)

	return fmt.Sprintf("%s/sensor/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

// DryContact builds the discovery entry for a dry-contact binary sensor.
// The raw first payload byte is exposed through the attributes topic.
func (b *Builder) DryContact(d device.DryContact) (string, Config) {
	a := d.Address
	oid := fmt.Sprintf("dry_contact_%d_%d_%d", a.Subnet, a.Device, a.Channel)

	cfg := Config{
		Name:            defaultName(d.Name, fmt.Sprintf("Dry contact %s", a)),
		UniqueID:        fmt.Sprintf("%s_%s", b.nodeID, oid),
		StateTopic:      b.topics.DryContactState(int(a.Subnet), int(a.Device), int(a.Channel)),
		JSONAttributesT: b.topics.DryContactAttrs(int(a.Subnet), int(a.Device), int(a.Channel)),
		PayloadOn:       "ON",
		PayloadOff:      "OFF",
		Device:          b.categoryDevice("", "Dry contact"),
		Icon:            d.Icon,
	}
	b.availability(&cfg)

	if dc := strings.TrimSpace(strings.ToLower(d.DeviceClass)); dc != "" && dc != "none" && dc != "null" {
		cfg.DeviceClass = d.DeviceClass
	}

	return fmt.Sprintf("%s/binary_sensor/%s/%s/config", b.prefix, b.nodeID, oid), cfg
}

func defaultName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
