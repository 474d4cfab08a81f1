package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
)

// LightCommand is the JSON payload accepted on light command topics.
type LightCommand struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

// subscribeCommands subscribes to every command wildcard. Called on connect
// and on every reconnect; re-subscribing an already-tracked topic is safe.
func (c *Core) subscribeCommands() {
	qos := byte(c.cfg.MQTT.QoS)
	for _, pattern := range c.topics.CommandWildcards() {
		if err := c.mqtt.Subscribe(pattern, qos, c.handleCommandMessage); err != nil {
			c.logger.Warn("command subscribe failed", "topic", pattern, "error", err)
		}
	}
}

// handleCommandMessage dispatches an incoming command topic.
//
// Topic layout: <prefix>/cmd/<kind>/<subnet>/<device>/<channel>
// Group topics: <prefix>/cmd/cover_group[...]/<id>
func (c *Core) handleCommandMessage(topic string, payload []byte) error {
	prefix := c.topics.Prefix() + "/cmd/"
	if !strings.HasPrefix(topic, prefix) {
		return nil
	}

	parts := strings.Split(strings.TrimPrefix(topic, prefix), "/")
	if len(parts) < 2 {
		return nil
	}
	kind := parts[0]

	if strings.HasPrefix(kind, "cover_group") {
		return c.handleGroupCommand(kind, parts[1], payload)
	}

	if len(parts) != 4 {
		return nil
	}
	addr, err := parseTopicAddress(parts[1], parts[2], parts[3])
	if err != nil {
		c.logger.Debug("bad command address", "topic", topic, "error", err)
		return nil
	}

	switch kind {
	case "light":
		return c.handleLightCommand(addr, payload)
	case "cover":
		return c.CommandCover(addr, strings.ToUpper(strings.TrimSpace(string(payload))))
	case "cover_raw":
		return c.CommandCoverRaw(addr, strings.ToUpper(strings.TrimSpace(string(payload))))
	case "cover_pos":
		pos, err := strconv.Atoi(strings.TrimSpace(string(payload)))
		if err != nil {
			c.logger.Debug("bad position payload", "topic", topic, "payload", string(payload))
			return nil
		}
		return c.CommandCoverPosition(addr, pos)
	}
	return nil
}

// handleLightCommand parses the JSON light payload and drives the bus.
func (c *Core) handleLightCommand(addr buspro.ChannelAddress, payload []byte) error {
	var cmd LightCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		// Plain ON/OFF is accepted for hand-published commands.
		s := strings.ToUpper(strings.TrimSpace(string(payload)))
		if s != "ON" && s != "OFF" {
			c.logger.Debug("bad light payload", "addr", addr.String(), "payload", string(payload))
			return nil
		}
		cmd.State = s
	}

	return c.CommandLight(addr, strings.EqualFold(cmd.State, "ON"), cmd.Brightness)
}

// handleGroupCommand fans a group command out to members through the
// scheduler; sequential enqueueing yields natural pacing.
func (c *Core) handleGroupCommand(kind, groupID string, payload []byte) error {
	g, err := c.registry.GetCoverGroup(groupID)
	if err != nil {
		c.logger.Debug("command for unknown group", "id", groupID)
		return nil
	}

	action := strings.ToUpper(strings.TrimSpace(string(payload)))

	for _, member := range g.Members {
		var err error
		switch kind {
		case "cover_group":
			err = c.CommandCover(member, action)
		case "cover_group_raw":
			err = c.CommandCoverRaw(member, action)
		case "cover_group_pos":
			pos, convErr := strconv.Atoi(action)
			if convErr != nil {
				return nil
			}
			err = c.CommandCoverPosition(member, pos)
		}
		if err != nil {
			c.logger.Warn("group member command failed",
				"group", groupID, "member", member.String(), "error", err)
		}
	}
	return nil
}

// CommandLight drives a light channel.
//
// Brightness follows the platform 0..255 scale; nil turns on at full level.
func (c *Core) CommandLight(addr buspro.ChannelAddress, on bool, brightness *int) error {
	return c.gateway.SetLight(addr, on, brightness)
}

// CommandCover drives a cover with position logic (OPEN/CLOSE/STOP).
func (c *Core) CommandCover(addr buspro.ChannelAddress, action string) error {
	switch action {
	case "OPEN":
		return c.gateway.CoverOpen(addr)
	case "CLOSE":
		return c.gateway.CoverClose(addr)
	case "STOP":
		return c.gateway.CoverStop(addr)
	default:
		c.logger.Debug("unknown cover action", "addr", addr.String(), "action", action)
		return nil
	}
}

// CommandCoverRaw drives a cover without position logic or auto-stop.
func (c *Core) CommandCoverRaw(addr buspro.ChannelAddress, action string) error {
	switch action {
	case "OPEN":
		return c.gateway.CoverOpenRaw(addr)
	case "CLOSE":
		return c.gateway.CoverCloseRaw(addr)
	case "STOP":
		return c.gateway.CoverStopRaw(addr)
	default:
		c.logger.Debug("unknown raw cover action", "addr", addr.String(), "action", action)
		return nil
	}
}

// CommandCoverPosition moves a cover to a target position.
func (c *Core) CommandCoverPosition(addr buspro.ChannelAddress, position int) error {
	return c.gateway.CoverSetPosition(addr, position)
}

// CommandCoverGroup drives every member of a group (used by the HTTP surface).
func (c *Core) CommandCoverGroup(groupID, action string) error {
	return c.handleGroupCommand("cover_group", groupID, []byte(action))
}

// CommandCoverGroupPosition moves every member of a group.
func (c *Core) CommandCoverGroupPosition(groupID string, position int) error {
	return c.handleGroupCommand("cover_group_pos", groupID, []byte(strconv.Itoa(position)))
}

// parseTopicAddress converts topic path segments into a channel address.
func parseTopicAddress(subnet, dev, channel string) (buspro.ChannelAddress, error) {
	return buspro.ParseChannelAddress(subnet + "." + dev + "." + channel)
}
