package mqtt

import "fmt"

// Topics builds the MQTT topic hierarchy under the configured prefix.
//
// Layout:
//
//	<prefix>/availability                              online/offline (LWT)
//	<prefix>/state/<kind>/<subnet>/<device>/<channel>  retained state
//	<prefix>/state/cover_group/<id>                    retained group state
//	<prefix>/cmd/<kind>/<subnet>/<device>/<channel>    commands
//	<prefix>/cmd/cover_group*/<id>                     group commands
type Topics struct {
	prefix string
}

// NewTopics creates a Topics builder for the given prefix (e.g. "buspro").
func NewTopics(prefix string) Topics {
	return Topics{prefix: prefix}
}

// Prefix returns the configured base topic.
func (t Topics) Prefix() string {
	return t.prefix
}

// Availability returns the availability (LWT) topic.
func (t Topics) Availability() string {
	return t.prefix + "/availability"
}

// LightState returns the retained state topic for a light channel.
func (t Topics) LightState(subnet, device, channel int) string {
	return fmt.Sprintf("%s/state/light/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverState returns the retained state topic for a cover channel.
func (t Topics) CoverState(subnet, device, channel int) string {
	return fmt.Sprintf("%s/state/cover/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverGroupState returns the retained state topic for a cover group.
func (t Topics) CoverGroupState(groupID string) string {
	return fmt.Sprintf("%s/state/cover_group/%s", t.prefix, groupID)
}

// SensorState returns the retained state topic for a numeric sensor reading.
// kind is one of "temp", "humidity", "illuminance".
func (t Topics) SensorState(kind string, subnet, device, sensorID int) string {
	return fmt.Sprintf("%s/state/%s/%d/%d/%d", t.prefix, kind, subnet, device, sensorID)
}

// DryContactState returns the retained state topic for a dry-contact input.
func (t Topics) DryContactState(subnet, device, input int) string {
	return fmt.Sprintf("%s/state/dry_contact/%d/%d/%d", t.prefix, subnet, device, input)
}

// DryContactAttrs returns the JSON attributes topic for a dry-contact input.
func (t Topics) DryContactAttrs(subnet, device, input int) string {
	return fmt.Sprintf("%s/state/dry_contact_attr/%d/%d/%d", t.prefix, subnet, device, input)
}

// LightCommand returns the command topic for a light channel.
func (t Topics) LightCommand(subnet, device, channel int) string {
	return fmt.Sprintf("%s/cmd/light/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverCommand returns the OPEN/CLOSE/STOP command topic for a cover.
func (t Topics) CoverCommand(subnet, device, channel int) string {
	return fmt.Sprintf("%s/cmd/cover/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverRawCommand returns the raw command topic for a cover.
// Raw commands map directly to bus OPEN/CLOSE/STOP and bypass position logic.
func (t Topics) CoverRawCommand(subnet, device, channel int) string {
	return fmt.Sprintf("%s/cmd/cover_raw/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverPositionCommand returns the set-position command topic for a cover.
func (t Topics) CoverPositionCommand(subnet, device, channel int) string {
	return fmt.Sprintf("%s/cmd/cover_pos/%d/%d/%d", t.prefix, subnet, device, channel)
}

// CoverGroupCommand returns the OPEN/CLOSE/STOP command topic for a cover group.
func (t Topics) CoverGroupCommand(groupID string) string {
	return fmt.Sprintf("%s/cmd/cover_group/%s", t.prefix, groupID)
}

// CoverGroupRawCommand returns the raw command topic for a cover group.
func (t Topics) CoverGroupRawCommand(groupID string) string {
	return fmt.Sprintf("%s/cmd/cover_group_raw/%s", t.prefix, groupID)
}

// CoverGroupPositionCommand returns the set-position command topic for a cover group.
func (t Topics) CoverGroupPositionCommand(groupID string) string {
	return fmt.Sprintf("%s/cmd/cover_group_pos/%s", t.prefix, groupID)
}

// CommandWildcards returns the subscription patterns covering every command
// topic the bridge accepts. Subscribed on connect and after every reconnect.
func (t Topics) CommandWildcards() []string {
	kinds := []string{
		"light", "cover", "cover_raw", "cover_pos",
		"cover_group", "cover_group_raw", "cover_group_pos",
	}
	patterns := make([]string, 0, len(kinds))
	for _, k := range kinds {
		patterns = append(patterns, fmt.Sprintf("%s/cmd/%s/#", t.prefix, k))
	}
	return patterns
}
