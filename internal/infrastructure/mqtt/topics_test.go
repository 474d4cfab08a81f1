package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := NewTopics("buspro")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "availability", got: topics.Availability(), want: "buspro/availability"},
		{name: "light state", got: topics.LightState(1, 100, 2), want: "buspro/state/light/1/100/2"},
		{name: "cover state", got: topics.CoverState(1, 50, 1), want: "buspro/state/cover/1/50/1"},
		{name: "group state", got: topics.CoverGroupState("abc"), want: "buspro/state/cover_group/abc"},
		{name: "temp state", got: topics.SensorState("temp", 1, 24, 3), want: "buspro/state/temp/1/24/3"},
		{name: "dry contact", got: topics.DryContactState(1, 30, 4), want: "buspro/state/dry_contact/1/30/4"},
		{name: "dry contact attrs", got: topics.DryContactAttrs(1, 30, 4), want: "buspro/state/dry_contact_attr/1/30/4"},
		{name: "light cmd", got: topics.LightCommand(1, 100, 2), want: "buspro/cmd/light/1/100/2"},
		{name: "cover raw cmd", got: topics.CoverRawCommand(1, 50, 1), want: "buspro/cmd/cover_raw/1/50/1"},
		{name: "cover pos cmd", got: topics.CoverPositionCommand(1, 50, 1), want: "buspro/cmd/cover_pos/1/50/1"},
		{name: "group cmd", got: topics.CoverGroupCommand("abc"), want: "buspro/cmd/cover_group/abc"},
		{name: "group raw cmd", got: topics.CoverGroupRawCommand("abc"), want: "buspro/cmd/cover_group_raw/abc"},
		{name: "group pos cmd", got: topics.CoverGroupPositionCommand("abc"), want: "buspro/cmd/cover_group_pos/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCommandWildcards(t *testing.T) {
	patterns := NewTopics("buspro").CommandWildcards()

	want := map[string]bool{
		"buspro/cmd/light/#":           false,
		"buspro/cmd/cover/#":           false,
		"buspro/cmd/cover_raw/#":       false,
		"buspro/cmd/cover_pos/#":       false,
		"buspro/cmd/cover_group/#":     false,
		"buspro/cmd/cover_group_raw/#": false,
		"buspro/cmd/cover_group_pos/#": false,
	}

	for _, p := range patterns {
		if _, ok := want[p]; !ok {
			t.Errorf("unexpected pattern %q", p)
			continue
		}
		want[p] = true
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("missing pattern %q", p)
		}
	}
}
