package core

import (
	"encoding/json"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
)

// AddLight registers a light and publishes its discovery entry.
func (c *Core) AddLight(l device.Light) error {
	if err := c.registry.AddLight(l); err != nil {
		return err
	}
	c.gateway.EnsureLight(l.Address)
	c.gateway.ReadLightStatus(l.Address)
	return nil
}

// UpdateLight patches a light, migrating persisted state on address change.
func (c *Core) UpdateLight(oldAddr buspro.ChannelAddress, l device.Light) error {
	if err := c.registry.UpdateLight(oldAddr, l); err != nil {
		return err
	}
	if l.Address != oldAddr {
		c.migrateState("light", oldAddr.String(), l.Address.String())
		c.clearDeviceState("light:"+oldAddr.String(),
			c.topics.LightState(int(oldAddr.Subnet), int(oldAddr.Device), int(oldAddr.Channel)),
			c.discoveryTopicFor(device.KindLight, oldAddr))
		c.gateway.EnsureLight(l.Address)
	}
	return nil
}

// DeleteLight removes a light along with its persisted state and retained
// MQTT topics.
func (c *Core) DeleteLight(addr buspro.ChannelAddress) error {
	if err := c.registry.DeleteLight(addr); err != nil {
		return err
	}
	c.clearDeviceState("light:"+addr.String(),
		c.topics.LightState(int(addr.Subnet), int(addr.Device), int(addr.Channel)),
		c.discoveryTopicFor(device.KindLight, addr))
	return nil
}

// AddCover registers a cover and configures its engine.
func (c *Core) AddCover(cov device.Cover) error {
	if err := c.registry.AddCover(cov); err != nil {
		return err
	}
	c.gateway.EnsureCover(cov.Address, cov.OpeningTimeUp, cov.OpeningTimeDown, cov.StartDelay)
	return nil
}

// UpdateCover patches a cover, migrating persisted state on address change.
func (c *Core) UpdateCover(oldAddr buspro.ChannelAddress, cov device.Cover) error {
	if err := c.registry.UpdateCover(oldAddr, cov); err != nil {
		return err
	}
	if cov.Address != oldAddr {
		c.migrateState("cover", oldAddr.String(), cov.Address.String())
		c.clearDeviceState("cover:"+oldAddr.String(),
			c.topics.CoverState(int(oldAddr.Subnet), int(oldAddr.Device), int(oldAddr.Channel)),
			c.discoveryTopicFor(device.KindCover, oldAddr))
	}
	c.gateway.EnsureCover(cov.Address, cov.OpeningTimeUp, cov.OpeningTimeDown, cov.StartDelay)
	return nil
}

// DeleteCover removes a cover along with its state and retained topics,
// including the no-% clone.
func (c *Core) DeleteCover(addr buspro.ChannelAddress) error {
	cov, err := c.registry.GetCover(addr)
	if err != nil {
		return err
	}
	if err := c.registry.DeleteCover(addr); err != nil {
		return err
	}

	c.clearDeviceState("cover:"+addr.String(),
		c.topics.CoverState(int(addr.Subnet), int(addr.Device), int(addr.Channel)),
		c.discoveryTopicFor(device.KindCover, addr))

	noPctTopic, _ := c.disco.CoverNoPct(cov)
	if err := c.mqtt.ClearRetained(noPctTopic); err != nil {
		c.logger.Debug("no-pct discovery clear failed", "topic", noPctTopic, "error", err)
	}
	return nil
}

// AddSensor registers a sensor.
func (c *Core) AddSensor(s device.Sensor) error {
	return c.registry.AddSensor(s)
}

// UpdateSensor patches a sensor, migrating persisted state on address change.
func (c *Core) UpdateSensor(oldAddr buspro.ChannelAddress, s device.Sensor) error {
	if err := c.registry.UpdateSensor(oldAddr, s); err != nil {
		return err
	}
	if s.Address != oldAddr {
		kindStr := string(s.Kind)
		c.migrateState(kindStr, oldAddr.String(), s.Address.String())
		c.clearDeviceState(kindStr+":"+oldAddr.String(),
			c.topics.SensorState(kindStr, int(oldAddr.Subnet), int(oldAddr.Device), int(oldAddr.Channel)),
			c.discoveryTopicFor(s.Kind, oldAddr))
	}
	return nil
}

// DeleteSensor removes a sensor along with its state and retained topics.
func (c *Core) DeleteSensor(kind device.Kind, addr buspro.ChannelAddress) error {
	if err := c.registry.DeleteSensor(kind, addr); err != nil {
		return err
	}
	kindStr := string(kind)
	c.clearDeviceState(kindStr+":"+addr.String(),
		c.topics.SensorState(kindStr, int(addr.Subnet), int(addr.Device), int(addr.Channel)),
		c.discoveryTopicFor(kind, addr))
	return nil
}

// AddDryContact registers a dry-contact input.
func (c *Core) AddDryContact(d device.DryContact) error {
	return c.registry.AddDryContact(d)
}

// UpdateDryContact patches a dry-contact input.
func (c *Core) UpdateDryContact(oldAddr buspro.ChannelAddress, d device.DryContact) error {
	if err := c.registry.UpdateDryContact(oldAddr, d); err != nil {
		return err
	}
	if d.Address != oldAddr {
		c.migrateState("dry_contact", oldAddr.String(), d.Address.String())
		c.clearDeviceState("dry_contact:"+oldAddr.String(),
			c.topics.DryContactState(int(oldAddr.Subnet), int(oldAddr.Device), int(oldAddr.Channel)),
			c.discoveryTopicFor(device.KindDryContact, oldAddr))
	}
	return nil
}

// DeleteDryContact removes a dry-contact input.
func (c *Core) DeleteDryContact(addr buspro.ChannelAddress) error {
	if err := c.registry.DeleteDryContact(addr); err != nil {
		return err
	}
	c.clearDeviceState("dry_contact:"+addr.String(),
		c.topics.DryContactState(int(addr.Subnet), int(addr.Device), int(addr.Channel)),
		c.discoveryTopicFor(device.KindDryContact, addr))

	attrsTopic := c.topics.DryContactAttrs(int(addr.Subnet), int(addr.Device), int(addr.Channel))
	if err := c.mqtt.ClearRetained(attrsTopic); err != nil {
		c.logger.Debug("attrs clear failed", "topic", attrsTopic, "error", err)
	}
	return nil
}

// UpsertCoverGroup creates or updates a cover group. The stable ID is
// preserved across renames.
func (c *Core) UpsertCoverGroup(g device.CoverGroup) (device.CoverGroup, error) {
	return c.registry.UpsertCoverGroup(g)
}

// DeleteCoverGroup removes a group along with its state and retained topics.
func (c *Core) DeleteCoverGroup(id string) error {
	g, err := c.registry.GetCoverGroup(id)
	if err != nil {
		return err
	}
	if err := c.registry.DeleteCoverGroup(id); err != nil {
		return err
	}

	c.clearDeviceState("cover_group:"+id, c.topics.CoverGroupState(id), "")
	for _, topic := range c.groupDiscoveryTopics(g) {
		if err := c.mqtt.ClearRetained(topic); err != nil {
			c.logger.Debug("group discovery clear failed", "topic", topic, "error", err)
		}
	}
	return nil
}

// ReloadEngines reapplies registry records to the gateway: cover travel
// times and light tracking. Called after a restore replaces the registry.
func (c *Core) ReloadEngines() {
	for _, cov := range c.registry.Covers() {
		c.gateway.EnsureCover(cov.Address, cov.OpeningTimeUp, cov.OpeningTimeDown, cov.StartDelay)
	}
	for _, l := range c.registry.Lights() {
		c.gateway.EnsureLight(l.Address)
	}
}

// Dedupe re-validates address uniqueness and resyncs downstream surfaces.
func (c *Core) Dedupe() map[device.Kind]int {
	return c.registry.Dedupe()
}

// Calibrate runs one end of the cover calibration flow.
//
// start=true drives the cover raw in the given direction ("up" opens) and
// begins timing; start=false stops it and saves the elapsed wall clock as
// the travel time for that direction.
//
// Returns:
//   - float64: Elapsed seconds (only on the end press)
//   - error: Unknown cover, no calibration in progress, or transport issues
func (c *Core) Calibrate(addr buspro.ChannelAddress, direction string, start bool) (float64, error) {
	cov, err := c.registry.GetCover(addr)
	if err != nil {
		return 0, err
	}

	dir := buspro.CoverStatusClose
	if direction == "up" || direction == "open" {
		dir = buspro.CoverStatusOpen
	}

	if start {
		return 0, c.gateway.CalibrationStart(addr, dir)
	}

	measuredDir, elapsed, err := c.gateway.CalibrationEnd(addr)
	if err != nil {
		return 0, err
	}

	if measuredDir == buspro.CoverStatusOpen {
		cov.OpeningTimeUp = elapsed
	} else {
		cov.OpeningTimeDown = elapsed
	}
	if err := c.registry.UpdateCover(addr, cov); err != nil {
		return elapsed, err
	}
	c.gateway.EnsureCover(addr, cov.OpeningTimeUp, cov.OpeningTimeDown, cov.StartDelay)

	return elapsed, nil
}

// migrateState moves persisted state and the last-value cache entry to a
// new address key.
func (c *Core) migrateState(kind, oldAddr, newAddr string) {
	c.store.MigrateState(kind+":"+oldAddr, kind+":"+newAddr)
	c.last.Forget(kind + ":" + oldAddr)
}

// --- Discovery publication ---

// PublishAllDiscovery publishes discovery for every device class.
func (c *Core) PublishAllDiscovery() {
	for _, kind := range []device.Kind{
		device.KindLight, device.KindCover, device.KindCoverGroup,
		device.KindTemperature, device.KindHumidity, device.KindIlluminance,
		device.KindDryContact,
	} {
		c.publishDiscoveryFor(kind)
	}
}

// publishDiscoveryFor republishes discovery for one device class.
func (c *Core) publishDiscoveryFor(kind device.Kind) {
	switch kind {
	case device.KindLight:
		for _, l := range c.registry.Lights() {
			topic, cfg := c.disco.Light(l)
			c.publishDiscovery(topic, cfg)
		}
	case device.KindCover:
		for _, cov := range c.registry.Covers() {
			topic, cfg := c.disco.Cover(cov)
			c.publishDiscovery(topic, cfg)
			topic, cfg = c.disco.CoverNoPct(cov)
			c.publishDiscovery(topic, cfg)
		}
	case device.KindCoverGroup:
		for _, g := range c.registry.CoverGroups() {
			topic, cfg := c.disco.CoverGroup(g)
			c.publishDiscovery(topic, cfg)
			topic, cfg = c.disco.CoverGroupNoPct(g)
			c.publishDiscovery(topic, cfg)
		}
	case device.KindTemperature, device.KindHumidity, device.KindIlluminance:
		for _, s := range c.registry.Sensors(kind) {
			topic, cfg := c.disco.Sensor(s)
			c.publishDiscovery(topic, cfg)
		}
	case device.KindDryContact:
		for _, d := range c.registry.DryContacts() {
			topic, cfg := c.disco.DryContact(d)
			c.publishDiscovery(topic, cfg)
		}
	}
}

// publishDiscovery publishes one retained discovery entry.
func (c *Core) publishDiscovery(topic string, cfg any) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Error("discovery marshal failed", "topic", topic, "error", err)
		return
	}
	if err := c.mqtt.PublishRetained(topic, payload); err != nil {
		c.logger.Debug("discovery publish failed", "topic", topic, "error", err)
	}
}

// discoveryTopicFor rebuilds the discovery topic for a deleted/moved device.
func (c *Core) discoveryTopicFor(kind device.Kind, addr buspro.ChannelAddress) string {
	switch kind {
	case device.KindLight:
		topic, _ := c.disco.Light(device.Light{Address: addr, Name: "x"})
		return topic
	case device.KindCover:
		topic, _ := c.disco.Cover(device.Cover{Address: addr, Name: "x"})
		return topic
	case device.KindTemperature, device.KindHumidity, device.KindIlluminance:
		topic, _ := c.disco.Sensor(device.Sensor{Address: addr, Kind: kind, Name: "x"})
		return topic
	case device.KindDryContact:
		topic, _ := c.disco.DryContact(device.DryContact{Address: addr, Name: "x"})
		return topic
	}
	return ""
}

// groupDiscoveryTopics returns both discovery topics of a group.
func (c *Core) groupDiscoveryTopics(g device.CoverGroup) []string {
	t1, _ := c.disco.CoverGroup(g)
	t2, _ := c.disco.CoverGroupNoPct(g)
	return []string{t1, t2}
}
