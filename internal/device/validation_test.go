package device

import (
	"errors"
	"testing"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
)

func TestValidateCover(t *testing.T) {
	valid := Cover{
		Address:         buspro.ChannelAddress{Subnet: 1, Device: 50, Channel: 1},
		Name:            "Living room",
		OpeningTimeUp:   20,
		OpeningTimeDown: 22,
	}

	tests := []struct {
		name    string
		mutate  func(*Cover)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Cover) {}},
		{name: "empty name", mutate: func(c *Cover) { c.Name = "  " }, wantErr: true},
		{name: "negative up time", mutate: func(c *Cover) { c.OpeningTimeUp = -1 }, wantErr: true},
		{name: "absurd down time", mutate: func(c *Cover) { c.OpeningTimeDown = 9999 }, wantErr: true},
		{name: "negative start delay", mutate: func(c *Cover) { c.StartDelay = -0.5 }, wantErr: true},
		{name: "zero times are fine", mutate: func(c *Cover) { c.OpeningTimeUp = 0; c.OpeningTimeDown = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := ValidateCover(&c)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ValidateCover() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateCover() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSensor(t *testing.T) {
	minV, maxV := 10.0, 5.0

	tests := []struct {
		name    string
		sensor  Sensor
		wantErr bool
	}{
		{
			name:   "valid temperature",
			sensor: Sensor{Name: "T", Kind: KindTemperature},
		},
		{
			name:    "unknown kind",
			sensor:  Sensor{Name: "X", Kind: Kind("pressure")},
			wantErr: true,
		},
		{
			name:    "bad format",
			sensor:  Sensor{Name: "T", Kind: KindTemperature, Format: SensorFormat("wat")},
			wantErr: true,
		},
		{
			name:    "min above max",
			sensor:  Sensor{Name: "T", Kind: KindTemperature, Min: &minV, Max: &maxV},
			wantErr: true,
		},
		{
			name:    "empty name",
			sensor:  Sensor{Name: "", Kind: KindHumidity},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSensor(&tt.sensor)
			if tt.wantErr != (err != nil) {
				t.Errorf("ValidateSensor() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCoverGroup(t *testing.T) {
	if err := ValidateCoverGroup(&CoverGroup{Name: "G"}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty members: error = %v, want ErrValidation", err)
	}

	g := CoverGroup{
		Name:    "G",
		Members: []buspro.ChannelAddress{{Subnet: 1, Device: 50, Channel: 1}},
	}
	if err := ValidateCoverGroup(&g); err != nil {
		t.Errorf("valid group: unexpected error %v", err)
	}
}
