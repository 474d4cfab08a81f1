package buspro

import (
	"encoding/binary"
	"math"
)

// ReadingKind tags a decoded sensor value.
type ReadingKind string

// Reading kinds.
const (
	ReadingTemperature ReadingKind = "temperature"
	ReadingHumidity    ReadingKind = "humidity"
	ReadingIlluminance ReadingKind = "illuminance"
	ReadingDryContact  ReadingKind = "dry_contact"
)

// Reading is a tagged sensor value decoded from a telegram.
//
// The device identity is the telegram's source address: the first payload
// byte of dry-contact frames varies across firmwares and must not gate
// acceptance (it is retained as Raw for diagnostics).
type Reading struct {
	Kind   ReadingKind
	Source DeviceAddress

	// SensorID selects the sensor slot / input index on the module.
	SensorID int

	// Value is the numeric reading (temperature, humidity, lux).
	Value float64

	// ShortForm marks the 2-byte temperature encoding of 12-in-1 modules;
	// per-device scale and offset apply before publishing.
	ShortForm bool

	// On carries the dry-contact state.
	On bool

	// Raw is the first payload byte of dry-contact frames, published as an
	// MQTT attribute for diagnostics.
	Raw byte
}

// SensorDecoder turns a telegram into zero or more readings.
type SensorDecoder func(t Telegram) []Reading

// sensorDecoders maps opcode to decoder. Kept as a registry so
// firmware-specific payload variants stay pluggable.
var sensorDecoders = map[uint16]SensorDecoder{
	OpBroadcastTemperatureResponse:   decodeTemperature,
	OpReadSensorsInOneStatusResponse: decodeSensorsInOne,
	OpSensorsInOneRawResponse:        decodeSensorsInOneRaw,
	OpReadSensorStatusResponse:       decodeSensorStatus,
	OpControlPanelACResponse:         decodeDryContact,
}

// DecodeSensorTelegram decodes sensor readings from a telegram.
//
// Returns:
//   - []Reading: Decoded readings (empty for non-sensor or unparseable frames)
//   - bool: Whether the opcode has a registered sensor decoder
func DecodeSensorTelegram(t Telegram) ([]Reading, bool) {
	dec, ok := sensorDecoders[t.OpCode]
	if !ok {
		return nil, false
	}
	return dec(t), true
}

// decodeTemperature handles BroadcastTemperatureResponse.
//
// Formats:
//   - float32: payload [sensor_id, aux, b0, b1, b2, b3] (little-endian)
//   - short:   payload [sensor_id, value] on 12-in-1 modules; the per-device
//     scale (default 0.5 °C steps) and offset apply downstream
func decodeTemperature(t Telegram) []Reading {
	p := t.Payload
	if len(p) >= 6 {
		bits := binary.LittleEndian.Uint32(p[2:6])
		value := float64(math.Float32frombits(bits))
		return []Reading{{
			Kind:     ReadingTemperature,
			Source:   t.Source,
			SensorID: int(p[0]),
			Value:    value,
		}}
	}
	if len(p) == 2 {
		return []Reading{{
			Kind:      ReadingTemperature,
			Source:    t.Source,
			SensorID:  int(p[0]),
			Value:     float64(p[1]),
			ShortForm: true,
		}}
	}
	return nil
}

// decodeSensorsInOne handles ReadSensorsInOneStatusResponse (0x1605).
//
// Observed 12-in-1 payload: [248, temp_raw, lux_hi, lux_lo, humidity, ...]
// with a variant exposing 24-bit lux at payload[5:8]. A 0xFF(FFFF) field
// means "no value". The leading marker byte must be 248.
func decodeSensorsInOne(t Telegram) []Reading {
	p := t.Payload
	if len(p) < 4 || p[0] != 248 {
		return nil
	}

	var readings []Reading

	if len(p) >= 5 && p[4] != 0xFF {
		readings = append(readings, Reading{
			Kind:   ReadingHumidity,
			Source: t.Source,
			Value:  float64(p[4]),
		})
	}

	if lux, ok := sensorsInOneLux(p); ok {
		readings = append(readings, Reading{
			Kind:   ReadingIlluminance,
			Source: t.Source,
			Value:  lux,
		})
	}

	return readings
}

// sensorsInOneLux extracts illuminance from a 0x1605 payload.
//
// Common modules report 16-bit lux at payload[2:4]; some variants report
// 24-bit lux at payload[5:8]. When payload[5] looks like an air-quality
// level (0..3) the 16-bit field is authoritative.
func sensorsInOneLux(p []byte) (float64, bool) {
	var lux16 float64
	has16 := false
	if !(p[2] == 0xFF && p[3] == 0xFF) {
		lux16 = float64(uint32(p[2])<<8 + uint32(p[3]))
		has16 = true
	}

	var lux24 float64
	has24 := false
	if len(p) >= 8 && !(p[5] == 0xFF && p[6] == 0xFF && p[7] == 0xFF) {
		lux24 = float64(uint32(p[5])<<16 + uint32(p[6])<<8 + uint32(p[7]))
		has24 = true
	}

	maybeAir := len(p) >= 6 && p[5] <= 3
	if has16 && maybeAir {
		return lux16, true
	}
	if has24 {
		return lux24, true
	}
	if has16 {
		return lux16, true
	}
	return 0, false
}

// decodeSensorsInOneRaw handles raw opcode 0x1630, a firmware variant of
// 0x1605 without the leading 248 marker:
// payload [temp_raw, 0, 0, humidity, lux_b0, lux_b1, lux_b2, ...].
func decodeSensorsInOneRaw(t Telegram) []Reading {
	p := t.Payload
	var readings []Reading

	if len(p) >= 4 && p[3] != 0xFF {
		readings = append(readings, Reading{
			Kind:   ReadingHumidity,
			Source: t.Source,
			Value:  float64(p[3]),
		})
	}

	if len(p) >= 7 && !(p[4] == 0xFF && p[5] == 0xFF && p[6] == 0xFF) {
		lux := float64(uint32(p[4])<<16 + uint32(p[5])<<8 + uint32(p[6]))
		readings = append(readings, Reading{
			Kind:   ReadingIlluminance,
			Source: t.Source,
			Value:  lux,
		})
	}

	return readings
}

// decodeSensorStatus handles ReadSensorStatusResponse (0x1646):
// 16-bit lux, observed as payload [248, sensor_id, lux_hi, lux_lo, ...].
// When the marker differs the first two bytes are assumed to be the value.
func decodeSensorStatus(t Telegram) []Reading {
	p := t.Payload
	if len(p) < 4 {
		return nil
	}

	var hi, lo byte
	if p[0] == 248 {
		hi, lo = p[2], p[3]
	} else {
		hi, lo = p[0], p[1]
	}
	if hi == 0xFF && lo == 0xFF {
		return nil
	}

	return []Reading{{
		Kind:   ReadingIlluminance,
		Source: t.Source,
		Value:  float64(uint32(hi)<<8 + uint32(lo)),
	}}
}

// decodeDryContact handles ControlPanelACResponse (0xE3D9):
// payload [x, input_id, value, ...]. The input is identified by the source
// address plus payload[1]; payload[0] varies across firmwares and is kept
// only as a diagnostic attribute. Values other than 0/1 are dropped.
func decodeDryContact(t Telegram) []Reading {
	p := t.Payload
	if len(p) < 3 {
		return nil
	}
	if p[2] != 0 && p[2] != 1 {
		return nil
	}

	return []Reading{{
		Kind:     ReadingDryContact,
		Source:   t.Source,
		SensorID: int(p[1]),
		On:       p[2] == 1,
		Raw:      p[0],
	}}
}
