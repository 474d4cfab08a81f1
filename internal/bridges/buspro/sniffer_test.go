package buspro

import (
	"testing"
)

func snifferTelegram(op uint16) Telegram {
	return Telegram{
		Source:  DeviceAddress{Subnet: 1, Device: 2},
		Target:  DeviceAddress{Subnet: 255, Device: 255},
		OpCode:  op,
		Payload: []byte{1, 2},
	}
}

func TestSnifferRecordsUnknownWhenDisabled(t *testing.T) {
	s := NewSniffer(10)

	s.OnTelegram(snifferTelegram(0xBEEF), nil, false)
	s.OnTelegram(snifferTelegram(OpCurtainSwitchControl), nil, true)

	entries := s.Recent(0)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (only the unknown opcode)", len(entries))
	}
	if entries[0].OpCode != 0xBEEF {
		t.Errorf("OpCode = 0x%04X, want 0xBEEF", entries[0].OpCode)
	}
	if entries[0].OpCodeHex != "beef" {
		t.Errorf("OpCodeHex = %q, want beef", entries[0].OpCodeHex)
	}
	if entries[0].Known {
		t.Error("Known = true, want false")
	}
}

func TestSnifferCapturesKnownWhenEnabled(t *testing.T) {
	s := NewSniffer(10)
	s.Start(SnifferFilter{}, false)

	s.OnTelegram(snifferTelegram(OpCurtainSwitchControl), nil, true)

	if got := len(s.Recent(0)); got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}
	if st := s.Status(); !st.Enabled || st.Matched != 1 {
		t.Errorf("status = %+v, want enabled with 1 match", st)
	}
}

func TestSnifferFilters(t *testing.T) {
	s := NewSniffer(10)
	s.Start(SnifferFilter{OpCodes: []uint16{OpCurtainSwitchControl}}, false)

	s.OnTelegram(snifferTelegram(OpCurtainSwitchControl), nil, true)
	s.OnTelegram(snifferTelegram(OpSingleChannelControl), nil, true)

	if got := len(s.Recent(0)); got != 1 {
		t.Errorf("entries = %d, want 1 (filtered)", got)
	}

	s.Start(SnifferFilter{Source: "9.9"}, true)
	s.OnTelegram(snifferTelegram(OpCurtainSwitchControl), nil, true)
	if got := len(s.Recent(0)); got != 0 {
		t.Errorf("entries = %d, want 0 (source mismatch)", got)
	}
}

func TestSnifferRingBounded(t *testing.T) {
	s := NewSniffer(5)
	s.Start(SnifferFilter{}, false)

	for i := 0; i < 20; i++ {
		tg := snifferTelegram(OpCurtainSwitchControl)
		tg.Payload = []byte{byte(i)}
		s.OnTelegram(tg, nil, true)
	}

	entries := s.Recent(0)
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want capacity 5", len(entries))
	}
	// Oldest first; the ring must hold the last five.
	if entries[0].Payload[0] != 15 || entries[4].Payload[0] != 19 {
		t.Errorf("ring window = %d..%d, want 15..19",
			entries[0].Payload[0], entries[4].Payload[0])
	}
}

func TestSnifferStopKeepsUnknownRecording(t *testing.T) {
	s := NewSniffer(10)
	s.Start(SnifferFilter{}, false)
	s.Stop()

	s.OnTelegram(snifferTelegram(0xBEEF), nil, false)
	s.OnTelegram(snifferTelegram(OpCurtainSwitchControl), nil, true)

	if got := len(s.Recent(0)); got != 1 {
		t.Errorf("entries = %d, want 1 (unknown still recorded)", got)
	}
}
