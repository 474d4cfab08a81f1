package core

import (
	"testing"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
)

func TestCoverStateString(t *testing.T) {
	tests := []struct {
		name string
		st   buspro.CoverState
		want string
	}{
		{name: "opening", st: buspro.CoverState{Phase: buspro.CoverOpening, Position: 40}, want: "opening"},
		{name: "closing", st: buspro.CoverState{Phase: buspro.CoverClosing, Position: 40}, want: "closing"},
		{name: "fully open", st: buspro.CoverState{Phase: buspro.CoverIdle, Position: 100}, want: "open"},
		{name: "fully closed", st: buspro.CoverState{Phase: buspro.CoverIdle, Position: 0}, want: "closed"},
		{name: "stopped mid-travel", st: buspro.CoverState{Phase: buspro.CoverIdle, Position: 55}, want: "stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coverStateString(tt.st); got != tt.want {
				t.Errorf("coverStateString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSensorValue(t *testing.T) {
	one := 1
	zero := 0

	tests := []struct {
		name     string
		value    float64
		decimals *int
		want     string
	}{
		{name: "integer no decimals", value: 150, want: "150"},
		{name: "fraction default", value: 21.55, want: "21.6"},
		{name: "explicit one decimal", value: 21.55, decimals: &one, want: "21.6"},
		{name: "explicit zero decimals", value: 21.55, decimals: &zero, want: "22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSensorValue(tt.value, tt.decimals); got != tt.want {
				t.Errorf("formatSensorValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplySensorConfig(t *testing.T) {
	scale := 0.1
	offset := -2.0
	minV := -30.0
	maxV := 60.0

	tests := []struct {
		name   string
		sensor device.Sensor
		r      buspro.Reading
		want   float64
		wantOK bool
	}{
		{
			name:   "float passthrough",
			sensor: device.Sensor{},
			r:      buspro.Reading{Value: 21.5},
			want:   21.5, wantOK: true,
		},
		{
			name:   "short form default half steps",
			sensor: device.Sensor{},
			r:      buspro.Reading{Value: 43, ShortForm: true},
			want:   21.5, wantOK: true,
		},
		{
			name:   "short form custom scale and offset",
			sensor: device.Sensor{Scale: &scale, Offset: &offset},
			r:      buspro.Reading{Value: 250, ShortForm: true},
			want:   23, wantOK: true,
		},
		{
			name:   "below min rejected",
			sensor: device.Sensor{Min: &minV},
			r:      buspro.Reading{Value: -40},
			wantOK: false,
		},
		{
			name:   "above max rejected",
			sensor: device.Sensor{Max: &maxV},
			r:      buspro.Reading{Value: 75},
			wantOK: false,
		},
		{
			name:   "pinned float32 drops short form",
			sensor: device.Sensor{Format: device.FormatFloat32LE},
			r:      buspro.Reading{Value: 43, ShortForm: true},
			wantOK: false,
		},
		{
			name:   "pinned uint8 drops float temperature",
			sensor: device.Sensor{Kind: device.KindTemperature, Format: device.FormatUint8},
			r:      buspro.Reading{Kind: buspro.ReadingTemperature, Value: 21.5},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := applySensorConfig(tt.sensor, tt.r)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitStateKey(t *testing.T) {
	kind, addr := splitStateKey("cover:1.50.1")
	if kind != "cover" || addr != "1.50.1" {
		t.Errorf("splitStateKey() = (%q, %q)", kind, addr)
	}

	kind, addr = splitStateKey("cover_group:abc-def")
	if kind != "cover_group" || addr != "abc-def" {
		t.Errorf("splitStateKey() = (%q, %q)", kind, addr)
	}
}
