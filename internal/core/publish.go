package core

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
)

// defaultShortFormScale converts 2-byte temperature payloads: many HDL
// sensors encode in 0.5 °C steps.
const defaultShortFormScale = 0.5

// LightStatePayload is the retained light state JSON.
type LightStatePayload struct {
	State      string `json:"state"`
	Brightness int    `json:"brightness,omitempty"`
}

// CoverStatePayload is the retained cover state JSON.
type CoverStatePayload struct {
	State    string `json:"state"`
	Position int    `json:"position"`
}

// onLightState handles light updates from the bus.
func (c *Core) onLightState(addr buspro.ChannelAddress, st buspro.LightState) {
	payload := LightStatePayload{State: "OFF"}
	if st.On {
		payload.State = "ON"
		payload.Brightness = st.Brightness
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	key := "light:" + addr.String()
	topic := c.topics.LightState(int(addr.Subnet), int(addr.Device), int(addr.Channel))
	c.publishState(key, topic, data, "state", map[string]any{
		"address": addr.String(),
		"state":   payload.State,
		"brightness": func() int {
			if st.On {
				return st.Brightness
			}
			return 0
		}(),
	})
}

// coverStateString maps the engine phase to the platform state string.
func coverStateString(st buspro.CoverState) string {
	switch st.Phase {
	case buspro.CoverOpening:
		return "opening"
	case buspro.CoverClosing:
		return "closing"
	}
	switch st.Position {
	case 100:
		return "open"
	case 0:
		return "closed"
	default:
		return "stopped"
	}
}

// onCoverState handles cover updates from the engine, fanning out to any
// groups the cover belongs to.
func (c *Core) onCoverState(addr buspro.ChannelAddress, st buspro.CoverState) {
	payload := CoverStatePayload{
		State:    coverStateString(st),
		Position: st.Position,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	key := "cover:" + addr.String()
	topic := c.topics.CoverState(int(addr.Subnet), int(addr.Device), int(addr.Channel))
	c.publishState(key, topic, data, "cover_state", map[string]any{
		"address":  addr.String(),
		"state":    payload.State,
		"position": payload.Position,
	})

	if c.influx != nil {
		c.influx.WriteCoverPosition(addr.String(), float64(st.Position))
	}

	c.publishCoverGroupsFor(addr)
}

// publishCoverGroupsFor recomputes and publishes the state of every group
// containing the cover.
func (c *Core) publishCoverGroupsFor(addr buspro.ChannelAddress) {
	for _, g := range c.registry.CoverGroups() {
		member := false
		for _, m := range g.Members {
			if m == addr {
				member = true
				break
			}
		}
		if member {
			c.publishCoverGroupState(g)
		}
	}
}

// publishCoverGroupState aggregates member states: the group reports
// movement if any member moves, and the mean member position.
func (c *Core) publishCoverGroupState(g device.CoverGroup) {
	states := c.gateway.CoverStates()

	sum, n := 0, 0
	phase := buspro.CoverIdle
	for _, m := range g.Members {
		st, ok := states[m]
		if !ok {
			continue
		}
		sum += st.Position
		n++
		if st.Phase != buspro.CoverIdle {
			phase = st.Phase
		}
	}
	if n == 0 {
		return
	}

	agg := buspro.CoverState{Phase: phase, Position: sum / n}
	payload := CoverStatePayload{
		State:    coverStateString(agg),
		Position: agg.Position,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	key := "cover_group:" + g.ID
	c.publishState(key, c.topics.CoverGroupState(g.ID), data, "cover_state", map[string]any{
		"group_id": g.ID,
		"state":    payload.State,
		"position": payload.Position,
	})
}

// onReading handles decoded sensor and dry-contact telegrams.
func (c *Core) onReading(r buspro.Reading) {
	switch r.Kind {
	case buspro.ReadingTemperature:
		c.publishSensorReading(device.KindTemperature, r, true)
	case buspro.ReadingHumidity:
		c.publishSensorReading(device.KindHumidity, r, false)
	case buspro.ReadingIlluminance:
		c.publishSensorReading(device.KindIlluminance, r, false)
	case buspro.ReadingDryContact:
		c.publishDryContact(r)
	}
}

// publishSensorReading publishes a numeric reading to every configured
// sensor it matches.
//
// Temperature frames address one sensor slot; combined 12-in-1 frames
// (humidity, illuminance) carry no slot and update every configured sensor
// on the module.
func (c *Core) publishSensorReading(kind device.Kind, r buspro.Reading, slotted bool) {
	sensors := c.registry.SensorsByModule(kind, r.Source)
	if len(sensors) == 0 {
		return
	}

	for _, s := range sensors {
		if slotted && int(s.Address.Channel) != r.SensorID {
			continue
		}

		value, ok := applySensorConfig(s, r)
		if !ok {
			continue
		}

		kindStr := string(kind)
		key := kindStr + ":" + s.Address.String()
		topic := c.topics.SensorState(kindStr, int(s.Address.Subnet), int(s.Address.Device), int(s.Address.Channel))
		payload := formatSensorValue(value, s.Decimals)

		event := kindStr + "_value"
		if kind == device.KindTemperature {
			event = "temp_value"
		}

		c.publishState(key, topic, []byte(payload), event, map[string]any{
			"address": s.Address.String(),
			"value":   value,
		})

		if c.influx != nil {
			c.influx.WriteSensorReading(kindStr, s.Address.String(), value)
		}
	}
}

// applySensorConfig gates firmware payload variants by the configured
// format, applies scale/offset for short-form values, and enforces the
// min/max acceptance window.
func applySensorConfig(s device.Sensor, r buspro.Reading) (float64, bool) {
	// An explicit format pins the expected encoding; mismatched variants
	// from other firmware on the same module are dropped.
	switch s.Format {
	case device.FormatFloat32LE:
		if r.ShortForm {
			return 0, false
		}
	case device.FormatUint8:
		if r.Kind == buspro.ReadingTemperature && !r.ShortForm {
			return 0, false
		}
	}

	value := r.Value

	if r.ShortForm {
		scale := defaultShortFormScale
		if s.Scale != nil {
			scale = *s.Scale
		}
		offset := 0.0
		if s.Offset != nil {
			offset = *s.Offset
		}
		value = value*scale + offset
	}

	if s.Min != nil && value < *s.Min {
		return 0, false
	}
	if s.Max != nil && value > *s.Max {
		return 0, false
	}
	return value, true
}

// formatSensorValue renders the numeric payload string.
func formatSensorValue(value float64, decimals *int) string {
	if decimals != nil {
		return strconv.FormatFloat(value, 'f', *decimals, 64)
	}
	if value == math.Trunc(value) {
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	return strconv.FormatFloat(value, 'f', 1, 64)
}

// publishDryContact publishes a dry-contact change plus the diagnostic
// attributes topic carrying the raw first payload byte.
func (c *Core) publishDryContact(r buspro.Reading) {
	addr := buspro.ChannelAddress{
		Subnet:  r.Source.Subnet,
		Device:  r.Source.Device,
		Channel: uint8(r.SensorID),
	}

	d, err := c.registry.GetDryContact(addr)
	if err != nil {
		return
	}

	on := r.On
	if d.Invert {
		on = !on
	}
	state := "OFF"
	if on {
		state = "ON"
	}

	key := "dry_contact:" + addr.String()
	topic := c.topics.DryContactState(int(addr.Subnet), int(addr.Device), int(addr.Channel))
	changed := c.publishState(key, topic, []byte(state), "dry_contact_state", map[string]any{
		"address": addr.String(),
		"state":   state,
		"x":       int(r.Raw),
	})

	if changed {
		attrs, err := json.Marshal(map[string]int{"x": int(r.Raw)})
		if err == nil {
			attrsTopic := c.topics.DryContactAttrs(int(addr.Subnet), int(addr.Device), int(addr.Channel))
			if err := c.mqtt.PublishRetained(attrsTopic, attrs); err != nil {
				c.logger.Debug("attrs publish failed", "topic", attrsTopic, "error", err)
			}
		}
	}
}

// publishState is the single state publication path: it suppresses
// unchanged payloads, publishes retained MQTT, persists the last value,
// broadcasts the WebSocket delta, and records history.
//
// Returns whether the payload changed (and was published).
func (c *Core) publishState(key, topic string, payload []byte, event string, eventData any) bool {
	if !c.last.Changed(key, string(payload)) {
		return false
	}

	c.store.SetState(key, json.RawMessage(payload))

	if err := c.mqtt.PublishRetained(topic, payload); err != nil {
		c.logger.Debug("state publish failed", "topic", topic, "error", err)
	}

	if c.hub != nil {
		c.hub.Broadcast(event, eventData)
	}

	if c.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		kind, address := splitStateKey(key)
		if err := c.history.Record(ctx, kind, address, json.RawMessage(payload)); err != nil {
			c.logger.Debug("history record failed", "key", key, "error", err)
		}
		cancel()
	}

	return true
}

// splitStateKey splits "<kind>:<address>" state keys.
func splitStateKey(key string) (kind, address string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// clearDeviceState removes retained MQTT state and cached values when a
// device is deleted.
func (c *Core) clearDeviceState(key, stateTopic, discoveryTopic string) {
	c.store.DeleteState(key)
	c.last.Forget(key)

	if err := c.mqtt.ClearRetained(stateTopic); err != nil {
		c.logger.Debug("retained state clear failed", "topic", stateTopic, "error", err)
	}
	if discoveryTopic != "" {
		if err := c.mqtt.ClearRetained(discoveryTopic); err != nil {
			c.logger.Debug("retained discovery clear failed", "topic", discoveryTopic, "error", err)
		}
	}
}
