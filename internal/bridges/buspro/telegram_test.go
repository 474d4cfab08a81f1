package buspro

import (
	"bytes"
	"net"
	"testing"
)

// buildFrame encodes a telegram the way a gateway would emit it.
func buildFrame(t *testing.T, tg Telegram) []byte {
	t.Helper()
	return tg.Encode(net.IPv4(192, 168, 1, 10))
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tg   Telegram
	}{
		{
			name: "light control",
			tg: NewTelegram(DeviceAddress{Subnet: 1, Device: 100},
				OpSingleChannelControl, []byte{2, 50, 0, 0}),
		},
		{
			name: "cover control open",
			tg: NewTelegram(DeviceAddress{Subnet: 1, Device: 50},
				OpCurtainSwitchControl, []byte{1, CoverStatusOpen}),
		},
		{
			name: "status read with empty payload",
			tg: NewTelegram(DeviceAddress{Subnet: 3, Device: 7},
				OpReadStatusOfChannels, nil),
		},
		{
			name: "broadcast temperature",
			tg: NewTelegram(DeviceAddress{Subnet: 255, Device: 255},
				OpBroadcastTemperatureResponse, []byte{1, 0, 0x00, 0x00, 0xA8, 0x41}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := buildFrame(t, tt.tg)

			got, err := DecodeFrame(frame)
			if err != nil {
				t.Fatalf("DecodeFrame() unexpected error: %v", err)
			}

			if got.Target != tt.tg.Target {
				t.Errorf("Target = %v, want %v", got.Target, tt.tg.Target)
			}
			if got.Source != tt.tg.Source {
				t.Errorf("Source = %v, want %v", got.Source, tt.tg.Source)
			}
			if got.OpCode != tt.tg.OpCode {
				t.Errorf("OpCode = 0x%04X, want 0x%04X", got.OpCode, tt.tg.OpCode)
			}
			if len(tt.tg.Payload) > 0 && !bytes.Equal(got.Payload, tt.tg.Payload) {
				t.Errorf("Payload = %X, want %X", got.Payload, tt.tg.Payload)
			}
			if len(tt.tg.Payload) == 0 && len(got.Payload) != 0 {
				t.Errorf("Payload = %X, want empty", got.Payload)
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	valid := buildFrame(t, NewTelegram(DeviceAddress{Subnet: 1, Device: 50},
		OpCurtainSwitchControl, []byte{1, CoverStatusOpen}))

	corruptCRC := make([]byte, len(valid))
	copy(corruptCRC, valid)
	corruptCRC[len(corruptCRC)-1] ^= 0xFF

	badMagic := make([]byte, len(valid))
	copy(badMagic, valid)
	badMagic[4] = 'X'

	badLength := make([]byte, len(valid))
	copy(badLength, valid)
	badLength[16] = 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "too short", data: valid[:20]},
		{name: "crc mismatch", data: corruptCRC},
		{name: "missing magic", data: badMagic},
		{name: "length mismatch", data: badLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); err == nil {
				t.Errorf("DecodeFrame() expected error, got nil")
			}
		})
	}
}

func TestRawOpCode(t *testing.T) {
	frame := buildFrame(t, NewTelegram(DeviceAddress{Subnet: 1, Device: 2},
		0x1630, []byte{1, 2, 3}))

	op, ok := RawOpCode(frame)
	if !ok {
		t.Fatal("RawOpCode() = false, want true")
	}
	if op != 0x1630 {
		t.Errorf("RawOpCode() = 0x%04X, want 0x1630", op)
	}

	if _, ok := RawOpCode(frame[:10]); ok {
		t.Error("RawOpCode() on short frame = true, want false")
	}
}

func TestEncodeEmbedsLocalIP(t *testing.T) {
	tg := NewTelegram(DeviceAddress{Subnet: 1, Device: 1}, OpReadStatusOfChannels, nil)
	frame := tg.Encode(net.IPv4(10, 0, 0, 42))

	if !bytes.Equal(frame[0:4], []byte{10, 0, 0, 42}) {
		t.Errorf("sender IP = %v, want 10.0.0.42", frame[0:4])
	}
	if string(frame[4:14]) != "HDLMIRACLE" {
		t.Errorf("magic = %q, want HDLMIRACLE", frame[4:14])
	}
}
