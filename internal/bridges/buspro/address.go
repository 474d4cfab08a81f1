package buspro

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceAddress identifies a physical module on the bus.
type DeviceAddress struct {
	Subnet uint8
	Device uint8
}

// String returns the "subnet.device" form.
func (a DeviceAddress) String() string {
	return fmt.Sprintf("%d.%d", a.Subnet, a.Device)
}

// ChannelAddress identifies a single channel (light output, cover motor,
// sensor input, dry-contact input) within a module.
type ChannelAddress struct {
	Subnet  uint8
	Device  uint8
	Channel uint8
}

// DeviceAddress returns the module part of the channel address.
func (a ChannelAddress) DeviceAddress() DeviceAddress {
	return DeviceAddress{Subnet: a.Subnet, Device: a.Device}
}

// String returns the "subnet.device.channel" form.
func (a ChannelAddress) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Subnet, a.Device, a.Channel)
}

// ParseChannelAddress parses a "subnet.device.channel" string.
//
// Each component must be in 0..255.
//
// Returns:
//   - ChannelAddress: Parsed address
//   - error: ErrInvalidAddress if the format or ranges are wrong
func ParseChannelAddress(s string) (ChannelAddress, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return ChannelAddress{}, fmt.Errorf("%w: %q (want subnet.device.channel)", ErrInvalidAddress, s)
	}

	vals := make([]uint8, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return ChannelAddress{}, fmt.Errorf("%w: component %q out of range 0..255", ErrInvalidAddress, p)
		}
		vals[i] = uint8(n)
	}

	return ChannelAddress{Subnet: vals[0], Device: vals[1], Channel: vals[2]}, nil
}
