package buspro

import "testing"

func TestBrightnessToPercent(t *testing.T) {
	tests := []struct {
		brightness int
		want       int
	}{
		{brightness: 0, want: 0},
		{brightness: 1, want: 1}, // non-zero never rounds to 0
		{brightness: 128, want: 50},
		{brightness: 255, want: 100},
		{brightness: 300, want: 100}, // clamped
		{brightness: -5, want: 0},
	}

	for _, tt := range tests {
		if got := BrightnessToPercent(tt.brightness); got != tt.want {
			t.Errorf("BrightnessToPercent(%d) = %d, want %d", tt.brightness, got, tt.want)
		}
	}
}

func TestBrightnessPercentRange(t *testing.T) {
	for b := 1; b <= 255; b++ {
		pct := BrightnessToPercent(b)
		if pct < 1 || pct > 100 {
			t.Fatalf("BrightnessToPercent(%d) = %d, out of 1..100", b, pct)
		}
	}
}

func TestBrightnessRoundTrip(t *testing.T) {
	// b -> percent -> b' must stay within the quantisation error of the
	// 0..100 bus scale.
	for b := 0; b <= 255; b++ {
		back := PercentToBrightness(BrightnessToPercent(b))
		diff := b - back
		if diff < 0 {
			diff = -diff
		}
		if diff > 2 {
			t.Fatalf("round trip %d -> %d drifted by %d", b, back, diff)
		}
	}
}

func TestKnownOpcode(t *testing.T) {
	known := []uint16{
		OpSingleChannelControl, OpSingleChannelControlResponse,
		OpReadStatusOfChannelsResponse, OpCurtainSwitchControl,
		OpCurtainSwitchStatusResponse, OpBroadcastTemperatureResponse,
		OpControlPanelACResponse, OpReadSensorsInOneStatusResponse,
		OpSensorsInOneRawResponse, OpReadSensorStatusResponse,
	}
	for _, op := range known {
		if !knownOpcode(op) {
			t.Errorf("knownOpcode(0x%04X) = false, want true", op)
		}
	}
	if knownOpcode(0xBEEF) {
		t.Error("knownOpcode(0xBEEF) = true, want false")
	}
}
