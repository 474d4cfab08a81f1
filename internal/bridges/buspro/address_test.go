package buspro

import "testing"

func TestParseChannelAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ChannelAddress
		wantErr bool
	}{
		{name: "valid", input: "1.100.2", want: ChannelAddress{1, 100, 2}},
		{name: "zeroes", input: "0.0.0", want: ChannelAddress{0, 0, 0}},
		{name: "max", input: "255.255.255", want: ChannelAddress{255, 255, 255}},
		{name: "whitespace", input: " 1.2.3 ", want: ChannelAddress{1, 2, 3}},
		{name: "too few parts", input: "1.2", wantErr: true},
		{name: "too many parts", input: "1.2.3.4", wantErr: true},
		{name: "out of range", input: "1.2.256", wantErr: true},
		{name: "negative", input: "1.-2.3", wantErr: true},
		{name: "not a number", input: "a.b.c", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannelAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseChannelAddress(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChannelAddress(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseChannelAddress(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestChannelAddressString(t *testing.T) {
	a := ChannelAddress{Subnet: 1, Device: 100, Channel: 2}
	if got := a.String(); got != "1.100.2" {
		t.Errorf("String() = %q, want %q", got, "1.100.2")
	}
	if got := a.DeviceAddress().String(); got != "1.100" {
		t.Errorf("DeviceAddress().String() = %q, want %q", got, "1.100")
	}
}
