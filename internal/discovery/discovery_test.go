package discovery

import (
	"strings"
	"testing"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/mqtt"
)

func testBuilder() *Builder {
	return NewBuilder("homeassistant", "192.168.1.50", 6000, mqtt.NewTopics("buspro"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Luci", want: "luci"},
		{input: "Living Room", want: "living_room"},
		{input: "Façade-Sud", want: "faade_sud"},
		{input: "  ", want: "device"},
		{input: "a-b c", want: "a_b_c"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLightDiscovery(t *testing.T) {
	b := testBuilder()

	topic, cfg := b.Light(device.Light{
		Address:  buspro.ChannelAddress{Subnet: 1, Device: 100, Channel: 2},
		Name:     "Kitchen",
		Dimmable: true,
		Category: "Luci",
	})

	wantTopic := "homeassistant/light/buspro_192_168_1_50_6000/light_1_100_2/config"
	if topic != wantTopic {
		t.Errorf("topic = %q, want %q", topic, wantTopic)
	}
	if cfg.StateTopic != "buspro/state/light/1/100/2" {
		t.Errorf("state topic = %q", cfg.StateTopic)
	}
	if cfg.CommandTopic != "buspro/cmd/light/1/100/2" {
		t.Errorf("command topic = %q", cfg.CommandTopic)
	}
	if cfg.Schema != "json" || !cfg.Brightness || cfg.BrightnessScale != 255 {
		t.Errorf("dimmable config wrong: %+v", cfg)
	}
	if cfg.Device.Identifiers[0] != "buspro:category:luci" {
		t.Errorf("device identifier = %q", cfg.Device.Identifiers[0])
	}
	if cfg.AvailabilityT != "buspro/availability" {
		t.Errorf("availability topic = %q", cfg.AvailabilityT)
	}
}

func TestLightObjectIDStableAcrossRenames(t *testing.T) {
	b := testBuilder()
	addr := buspro.ChannelAddress{Subnet: 1, Device: 100, Channel: 2}

	t1, c1 := b.Light(device.Light{Address: addr, Name: "Old name"})
	t2, c2 := b.Light(device.Light{Address: addr, Name: "Completely different"})

	if t1 != t2 {
		t.Errorf("discovery topic changed on rename: %q vs %q", t1, t2)
	}
	if c1.UniqueID != c2.UniqueID {
		t.Errorf("unique_id changed on rename: %q vs %q", c1.UniqueID, c2.UniqueID)
	}
}

func TestCoverDiscovery(t *testing.T) {
	b := testBuilder()

	topic, cfg := b.Cover(device.Cover{
		Address: buspro.ChannelAddress{Subnet: 1, Device: 50, Channel: 1},
		Name:    "Living",
	})

	if !strings.HasSuffix(topic, "/cover_1_50_1/config") {
		t.Errorf("topic = %q", topic)
	}
	if cfg.StateTopic != "buspro/state/cover/1/50/1" || cfg.PositionTopic != cfg.StateTopic {
		t.Errorf("state/position topics: %q / %q", cfg.StateTopic, cfg.PositionTopic)
	}
	if cfg.ValueTemplate == "" || cfg.PositionTemplate == "" {
		t.Error("templates missing for JSON state topic")
	}
	if cfg.StateOpen != "open" || cfg.StateStopped != "stopped" {
		t.Errorf("state strings: %+v", cfg)
	}
	if cfg.PositionOpen == nil || *cfg.PositionOpen != 100 {
		t.Error("position_open must be 100")
	}
	if cfg.PositionClosed == nil || *cfg.PositionClosed != 0 {
		t.Error("position_closed must be 0")
	}
	if cfg.SetPositionTopic != "buspro/cmd/cover_pos/1/50/1" {
		t.Errorf("set position topic = %q", cfg.SetPositionTopic)
	}
}

func TestCoverNoPctClone(t *testing.T) {
	b := testBuilder()

	topic, cfg := b.CoverNoPct(device.Cover{
		Address: buspro.ChannelAddress{Subnet: 1, Device: 50, Channel: 1},
		Name:    "Living",
	})

	if !strings.HasSuffix(topic, "/cover_1_50_1_no_pct/config") {
		t.Errorf("topic = %q", topic)
	}
	if !cfg.AssumedState || !cfg.Optimistic {
		t.Error("no-% clone must be optimistic with assumed_state")
	}
	if cfg.CommandTopic != "buspro/cmd/cover_raw/1/50/1" {
		t.Errorf("clone must use the raw command topic, got %q", cfg.CommandTopic)
	}
	if cfg.StateTopic != "" || cfg.PositionTopic != "" {
		t.Error("clone must not carry state/position topics")
	}
	if !strings.HasSuffix(cfg.Name, " no%") {
		t.Errorf("name = %q, want no%% suffix", cfg.Name)
	}
}

func TestCoverGroupDiscoveryKeyedByStableID(t *testing.T) {
	b := testBuilder()

	g := device.CoverGroup{
		ID:   "3f2a77aa-1111-2222-3333-444455556666",
		Name: "South side",
	}

	topic, cfg := b.CoverGroup(g)
	if !strings.Contains(topic, "group_"+g.ID) {
		t.Errorf("topic not keyed by stable id: %q", topic)
	}
	if cfg.CommandTopic != "buspro/cmd/cover_group/"+g.ID {
		t.Errorf("command topic = %q", cfg.CommandTopic)
	}

	// Renaming must not move topics.
	g.Name = "Renamed"
	topic2, _ := b.CoverGroup(g)
	if topic != topic2 {
		t.Errorf("group topic changed on rename")
	}
}

func TestSensorDiscovery(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		kind      device.Kind
		wantClass string
		wantUnit  string
		wantTopic string
	}{
		{device.KindTemperature, "temperature", "°C", "buspro/state/temp/1/24/1"},
		{device.KindHumidity, "humidity", "%", "buspro/state/humidity/1/24/1"},
		{device.KindIlluminance, "illuminance", "lx", "buspro/state/illuminance/1/24/1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, cfg := b.Sensor(device.Sensor{
				Address: buspro.ChannelAddress{Subnet: 1, Device: 24, Channel: 1},
				Kind:    tt.kind,
				Name:    "S",
			})
			if cfg.DeviceClass != tt.wantClass {
				t.Errorf("device_class = %q, want %q", cfg.DeviceClass, tt.wantClass)
			}
			if cfg.UnitOfMeasurement != tt.wantUnit {
				t.Errorf("unit = %q, want %q", cfg.UnitOfMeasurement, tt.wantUnit)
			}
			if cfg.StateTopic != tt.wantTopic {
				t.Errorf("state topic = %q, want %q", cfg.StateTopic, tt.wantTopic)
			}
			if cfg.StateClass != "measurement" {
				t.Errorf("state_class = %q", cfg.StateClass)
			}
		})
	}
}

func TestDryContactDiscovery(t *testing.T) {
	b := testBuilder()

	topic, cfg := b.DryContact(device.DryContact{
		Address:     buspro.ChannelAddress{Subnet: 1, Device: 30, Channel: 4},
		Name:        "Front door",
		DeviceClass: "door",
	})

	if !strings.Contains(topic, "/binary_sensor/") {
		t.Errorf("topic = %q, want binary_sensor platform", topic)
	}
	if cfg.JSONAttributesT != "buspro/state/dry_contact_attr/1/30/4" {
		t.Errorf("attributes topic = %q", cfg.JSONAttributesT)
	}
	if cfg.PayloadOn != "ON" || cfg.PayloadOff != "OFF" {
		t.Errorf("payloads = %q/%q", cfg.PayloadOn, cfg.PayloadOff)
	}
	if cfg.DeviceClass != "door" {
		t.Errorf("device_class = %q", cfg.DeviceClass)
	}

	// "none" placeholder is dropped.
	_, cfg2 := b.DryContact(device.DryContact{
		Address:     buspro.ChannelAddress{Subnet: 1, Device: 30, Channel: 5},
		Name:        "X",
		DeviceClass: "None",
	})
	if cfg2.DeviceClass != "" {
		t.Errorf("placeholder device_class kept: %q", cfg2.DeviceClass)
	}
}
