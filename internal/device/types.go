package device

import (
	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
)

// Kind identifies a device class.
type Kind string

// Device kinds.
const (
	KindLight       Kind = "light"
	KindCover       Kind = "cover"
	KindCoverGroup  Kind = "cover_group"
	KindTemperature Kind = "temp"
	KindHumidity    Kind = "humidity"
	KindIlluminance Kind = "illuminance"
	KindDryContact  Kind = "dry_contact"
)

// SensorKinds lists the numeric sensor classes.
func SensorKinds() []Kind {
	return []Kind{KindTemperature, KindHumidity, KindIlluminance}
}

// Light is a dimmable or switched lighting channel.
type Light struct {
	Address  buspro.ChannelAddress `json:"address"`
	Name     string                `json:"name"`
	Dimmable bool                  `json:"dimmable"`
	Category string                `json:"category,omitempty"`
	Icon     string                `json:"icon,omitempty"`
	Group    string                `json:"group,omitempty"`
}

// Cover is a motorized shade/blind channel.
// Position 0 is closed, 100 is open.
type Cover struct {
	Address buspro.ChannelAddress `json:"address"`
	Name    string                `json:"name"`

	// OpeningTimeUp/Down are the calibrated full-travel times in seconds.
	OpeningTimeUp   float64 `json:"opening_time_up_s,omitempty"`
	OpeningTimeDown float64 `json:"opening_time_down_s,omitempty"`

	// StartDelay is the seconds between command ack and motor start.
	StartDelay float64 `json:"start_delay_s,omitempty"`

	ReverseIcon bool   `json:"reverse_icon,omitempty"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Group       string `json:"group,omitempty"`
}

// CoverGroup is a logical aggregate of covers. Commands fan out to members
// sequentially through the send scheduler.
type CoverGroup struct {
	// ID is a stable UUID assigned at creation and preserved across renames.
	// MQTT topics and object IDs derive from it.
	ID string `json:"id"`

	Name     string                  `json:"name"`
	Members  []buspro.ChannelAddress `json:"members"`
	Icon     string                  `json:"icon,omitempty"`
	Category string                  `json:"category,omitempty"`
}

// SensorFormat selects the wire encoding of a sensor value.
type SensorFormat string

// Sensor value formats.
const (
	FormatAuto      SensorFormat = "auto"
	FormatFloat32LE SensorFormat = "float32_le"
	FormatUint8     SensorFormat = "uint8"
	FormatUint16LE  SensorFormat = "uint16_le"
)

// Sensor is a temperature, humidity, or illuminance input.
// The address channel component selects the sensor slot on the module.
type Sensor struct {
	Address buspro.ChannelAddress `json:"address"`
	Kind    Kind                  `json:"kind"`
	Name    string                `json:"name"`

	// Decimals rounds published values (nil keeps full precision).
	Decimals *int `json:"decimals,omitempty"`

	// Min/Max discard out-of-range readings (sensor glitches).
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Scale/Offset adjust short-form readings before publishing.
	// Defaults to 0.5 °C steps for 2-byte temperature payloads.
	Scale  *float64 `json:"scale,omitempty"`
	Offset *float64 `json:"offset,omitempty"`

	Format SensorFormat `json:"format,omitempty"`
}

// DryContact is a binary input. The address channel selects the input index.
type DryContact struct {
	Address buspro.ChannelAddress `json:"address"`
	Name    string                `json:"name"`

	// Invert flips the published on/off state.
	Invert bool `json:"invert,omitempty"`

	// DeviceClass is passed through to discovery (door, window, motion...).
	DeviceClass string `json:"device_class,omitempty"`

	Icon string `json:"icon,omitempty"`
}

// Devices bundles every typed record for persistence and snapshots.
type Devices struct {
	Lights      []Light      `json:"lights,omitempty"`
	Covers      []Cover      `json:"covers,omitempty"`
	Sensors     []Sensor     `json:"sensors,omitempty"`
	DryContacts []DryContact `json:"dry_contacts,omitempty"`
}
