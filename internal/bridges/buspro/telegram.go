package buspro

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Operate codes handled by the gateway. Values are fixed by the bus;
// names follow the behavior observed on HDL gateways.
const (
	// OpSingleChannelControl sets a light channel level (payload: channel, percent, duration hi/lo).
	OpSingleChannelControl uint16 = 0x0031

	// OpSingleChannelControlResponse acknowledges a channel set (payload: channel, success, percent).
	OpSingleChannelControlResponse uint16 = 0x0032

	// OpReadStatusOfChannels requests the level of all channels of a module.
	OpReadStatusOfChannels uint16 = 0x0033

	// OpReadStatusOfChannelsResponse carries all channel levels (payload: count, level...).
	OpReadStatusOfChannelsResponse uint16 = 0x0034

	// OpCurtainSwitchControl drives a cover motor (payload: channel, status 0|1|2).
	OpCurtainSwitchControl uint16 = 0xE3E0

	// OpCurtainSwitchControlResponse acknowledges a cover command.
	OpCurtainSwitchControlResponse uint16 = 0xE3E1

	// OpReadStatusOfCurtainSwitch requests the movement status of a cover channel.
	OpReadStatusOfCurtainSwitch uint16 = 0xE3E2

	// OpCurtainSwitchStatusResponse carries the cover movement status.
	// Status 0 means "no info" on observed gateways, not "stopped".
	OpCurtainSwitchStatusResponse uint16 = 0xE3E3

	// OpBroadcastTemperatureResponse carries a temperature reading
	// (float32 LE at payload[2:6], or a 2-byte short form on 12-in-1 modules).
	OpBroadcastTemperatureResponse uint16 = 0xE3E5

	// OpControlPanelACResponse carries dry-contact input changes.
	// The first payload byte varies across firmwares; the input is identified
	// by source address and payload[1].
	OpControlPanelACResponse uint16 = 0xE3D9

	// OpReadSensorsInOneStatusResponse carries combined 12-in-1 sensor data.
	OpReadSensorsInOneStatusResponse uint16 = 0x1605

	// OpSensorsInOneRawResponse is a firmware variant of 0x1605 without the
	// leading marker byte. Discovered empirically; layout per sensors.go.
	OpSensorsInOneRawResponse uint16 = 0x1630

	// OpReadSensorStatusResponse carries 16-bit illuminance (and presence flags).
	OpReadSensorStatusResponse uint16 = 0x1646

	// OpBroadcastSensorStatusAutoResponse is the unsolicited variant of 0x1646.
	OpBroadcastSensorStatusAutoResponse uint16 = 0x1647
)

// Cover motion status values used by CurtainSwitch opcodes.
const (
	CoverStatusStop  = 0
	CoverStatusOpen  = 1
	CoverStatusClose = 2
)

// Frame layout constants. HDL frames wrap the bus telegram in a UDP envelope:
// sender IPv4 (4), "HDLMIRACLE" (10), 0xAA 0xAA (2), then the data package.
const (
	frameMagic = "HDLMIRACLE"

	idxLength     = 16
	idxSrcSubnet  = 17
	idxSrcDevice  = 18
	idxDeviceType = 19
	idxOpCode     = 21
	idxDstSubnet  = 23
	idxDstDevice  = 24
	idxPayload    = 25

	// packageOverhead is the data-package byte count excluding the payload:
	// length(1) + src(2) + type(2) + opcode(2) + dst(2) + crc(2).
	packageOverhead = 11

	// minFrameSize is an empty-payload frame: 16-byte envelope + 11-byte package.
	minFrameSize = idxLength + packageOverhead

	// deviceTypeSelf is the device type advertised in outgoing frames.
	deviceTypeSelf uint16 = 0xFFFE
)

// Telegram is a decoded BusPro bus telegram.
type Telegram struct {
	// Source is the sending module's address.
	Source DeviceAddress

	// SourceDeviceType is the 2-byte device type of the sender.
	SourceDeviceType uint16

	// Target is the destination module's address (255.255 broadcasts).
	Target DeviceAddress

	// OpCode is the 16-bit operate code.
	OpCode uint16

	// Payload carries the opcode-specific content bytes.
	Payload []byte

	// Timestamp records when the telegram was received or created.
	Timestamp time.Time
}

// NewTelegram creates an outgoing telegram addressed to a module.
func NewTelegram(target DeviceAddress, opCode uint16, payload []byte) Telegram {
	return Telegram{
		Source:           DeviceAddress{Subnet: 200, Device: 200},
		SourceDeviceType: deviceTypeSelf,
		Target:           target,
		OpCode:           opCode,
		Payload:          payload,
		Timestamp:        time.Now(),
	}
}

// DecodeFrame parses a raw UDP datagram into a Telegram.
//
// The frame layout is:
//
//	Byte 0-3:   Sender IPv4
//	Byte 4-13:  "HDLMIRACLE"
//	Byte 14-15: 0xAA 0xAA
//	Byte 16:    Data-package length (11 + payload length)
//	Byte 17-18: Source subnet/device
//	Byte 19-20: Source device type
//	Byte 21-22: Operate code (big-endian)
//	Byte 23-24: Target subnet/device
//	Byte 25..:  Payload
//	Last 2:     CRC-16/CCITT over bytes [16 : len-2]
//
// Parameters:
//   - data: Raw datagram bytes
//
// Returns:
//   - Telegram: Parsed telegram with timestamp set to now
//   - error: ErrDecode if the frame is malformed or the CRC does not match
func DecodeFrame(data []byte) (Telegram, error) {
	if len(data) < minFrameSize {
		return Telegram{}, fmt.Errorf("%w: too short (%d bytes, need at least %d)", ErrDecode, len(data), minFrameSize)
	}
	if !bytes.Equal(data[4:14], []byte(frameMagic)) {
		return Telegram{}, fmt.Errorf("%w: missing %s marker", ErrDecode, frameMagic)
	}
	if data[14] != 0xAA || data[15] != 0xAA {
		return Telegram{}, fmt.Errorf("%w: bad preamble", ErrDecode)
	}

	length := int(data[idxLength])
	if length < packageOverhead || idxLength+length != len(data) {
		return Telegram{}, fmt.Errorf("%w: length mismatch (declared %d, frame %d)", ErrDecode, length, len(data))
	}

	wantCRC := binary.BigEndian.Uint16(data[len(data)-2:])
	gotCRC := crc16(data[idxLength : len(data)-2])
	if wantCRC != gotCRC {
		return Telegram{}, fmt.Errorf("%w: CRC mismatch (frame %04x, computed %04x)", ErrDecode, wantCRC, gotCRC)
	}

	payloadLen := length - packageOverhead
	payload := make([]byte, payloadLen)
	copy(payload, data[idxPayload:idxPayload+payloadLen])

	return Telegram{
		Source:           DeviceAddress{Subnet: data[idxSrcSubnet], Device: data[idxSrcDevice]},
		SourceDeviceType: binary.BigEndian.Uint16(data[idxDeviceType : idxDeviceType+2]),
		Target:           DeviceAddress{Subnet: data[idxDstSubnet], Device: data[idxDstDevice]},
		OpCode:           binary.BigEndian.Uint16(data[idxOpCode : idxOpCode+2]),
		Payload:          payload,
		Timestamp:        time.Now(),
	}, nil
}

// Encode serialises the telegram into a UDP frame.
//
// The frame embeds localIP as the sender IPv4: gateways reply to that
// address, so a wrong value sends responses to the wrong host.
//
// Parameters:
//   - localIP: IPv4 of the interface facing the gateway (nil falls back to 127.0.0.1)
//
// Returns:
//   - []byte: Complete frame ready to send
func (t Telegram) Encode(localIP net.IP) []byte {
	ip4 := localIP.To4()
	if ip4 == nil {
		ip4 = net.IPv4(127, 0, 0, 1).To4()
	}

	length := packageOverhead + len(t.Payload)
	buf := make([]byte, 0, idxLength+length)

	buf = append(buf, ip4...)
	buf = append(buf, frameMagic...)
	buf = append(buf, 0xAA, 0xAA)
	buf = append(buf, byte(length))
	buf = append(buf, t.Source.Subnet, t.Source.Device)
	buf = binary.BigEndian.AppendUint16(buf, t.SourceDeviceType)
	buf = binary.BigEndian.AppendUint16(buf, t.OpCode)
	buf = append(buf, t.Target.Subnet, t.Target.Device)
	buf = append(buf, t.Payload...)

	crc := crc16(buf[idxLength:])
	buf = binary.BigEndian.AppendUint16(buf, crc)
	return buf
}

// RawOpCode extracts the 2-byte operate code at its fixed frame offset
// without decoding the full frame. Used to trace unrecognized frames
// as "raw:0x....".
//
// Returns:
//   - uint16: The operate code
//   - bool: false if the frame is too short to contain one
func RawOpCode(data []byte) (uint16, bool) {
	if len(data) < idxOpCode+2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(data[idxOpCode : idxOpCode+2]), true
}

// String returns a human-readable representation of the telegram.
func (t Telegram) String() string {
	return fmt.Sprintf("Telegram{src:%s, dst:%s, op:0x%04X, payload:%X}",
		t.Source, t.Target, t.OpCode, t.Payload)
}

// crc16 computes CRC-16/CCITT (poly 0x1021, init 0x0000) as used by the bus.
func crc16(data []byte) uint16 {
	var reg uint16
	for _, octet := range data {
		for i := 0; i < 8; i++ {
			topbit := reg & 0x8000
			if octet&(0x80>>i) != 0 {
				topbit ^= 0x8000
			}
			reg <<= 1
			if topbit != 0 {
				reg ^= 0x1021
			}
		}
	}
	return reg
}
