package device

import (
	"errors"
	"testing"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
)

func addr(s, d, c uint8) buspro.ChannelAddress {
	return buspro.ChannelAddress{Subnet: s, Device: d, Channel: c}
}

func TestAddLightConflict(t *testing.T) {
	r := NewRegistry()

	if err := r.AddLight(Light{Address: addr(1, 100, 2), Name: "Kitchen"}); err != nil {
		t.Fatalf("AddLight() unexpected error: %v", err)
	}

	err := r.AddLight(Light{Address: addr(1, 100, 2), Name: "Duplicate"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("AddLight() error = %v, want ErrConflict", err)
	}

	// Same address in a different kind is fine.
	if err := r.AddCover(Cover{Address: addr(1, 100, 2), Name: "Shutter"}); err != nil {
		t.Errorf("AddCover() on same address: %v", err)
	}
}

func TestAddressUniquenessAfterMutations(t *testing.T) {
	r := NewRegistry()

	a1 := addr(1, 10, 1)
	a2 := addr(1, 10, 2)
	a3 := addr(1, 10, 3)

	if err := r.AddLight(Light{Address: a1, Name: "One"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddLight(Light{Address: a2, Name: "Two"}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateLight(a1, Light{Address: a3, Name: "One moved"}); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteLight(a2); err != nil {
		t.Fatal(err)
	}
	if err := r.AddLight(Light{Address: a2, Name: "Two again"}); err != nil {
		t.Fatal(err)
	}

	seen := make(map[buspro.ChannelAddress]bool)
	for _, l := range r.Lights() {
		if seen[l.Address] {
			t.Fatalf("duplicate address %s after mutations", l.Address)
		}
		seen[l.Address] = true
	}
}

func TestUpdateLightAddressCollision(t *testing.T) {
	r := NewRegistry()

	a1 := addr(1, 10, 1)
	a2 := addr(1, 10, 2)
	if err := r.AddLight(Light{Address: a1, Name: "One"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddLight(Light{Address: a2, Name: "Two"}); err != nil {
		t.Fatal(err)
	}

	err := r.UpdateLight(a1, Light{Address: a2, Name: "One moved"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("UpdateLight() error = %v, want ErrConflict", err)
	}
}

func TestUpdateLightNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.UpdateLight(addr(9, 9, 9), Light{Address: addr(9, 9, 9), Name: "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateLight() error = %v, want ErrNotFound", err)
	}
}

func TestSensorUniquenessPerKind(t *testing.T) {
	r := NewRegistry()
	a := addr(1, 24, 1)

	if err := r.AddSensor(Sensor{Address: a, Kind: KindTemperature, Name: "Temp"}); err != nil {
		t.Fatal(err)
	}
	// Same address, different kind: allowed.
	if err := r.AddSensor(Sensor{Address: a, Kind: KindHumidity, Name: "Hum"}); err != nil {
		t.Errorf("AddSensor() different kind: %v", err)
	}
	// Same kind, same address: conflict.
	err := r.AddSensor(Sensor{Address: a, Kind: KindTemperature, Name: "Dup"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("AddSensor() error = %v, want ErrConflict", err)
	}
}

func TestCoverGroupStableIDOnRename(t *testing.T) {
	r := NewRegistry()

	g, err := r.UpsertCoverGroup(CoverGroup{
		Name:    "South side",
		Members: []buspro.ChannelAddress{addr(1, 50, 1), addr(1, 50, 2)},
	})
	if err != nil {
		t.Fatalf("UpsertCoverGroup() error: %v", err)
	}
	if g.ID == "" {
		t.Fatal("new group has no ID")
	}

	renamed := g
	renamed.Name = "South facade"
	got, err := r.UpsertCoverGroup(renamed)
	if err != nil {
		t.Fatalf("UpsertCoverGroup() rename error: %v", err)
	}
	if got.ID != g.ID {
		t.Errorf("ID changed on rename: %s -> %s", g.ID, got.ID)
	}

	groups := r.CoverGroups()
	if len(groups) != 1 {
		t.Errorf("groups = %d, want 1", len(groups))
	}
}

func TestRegistrySnapshotLoadRoundTrip(t *testing.T) {
	r := NewRegistry()

	if err := r.AddLight(Light{Address: addr(1, 1, 1), Name: "L", Dimmable: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddCover(Cover{Address: addr(1, 2, 1), Name: "C", OpeningTimeUp: 20}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddSensor(Sensor{Address: addr(1, 3, 1), Kind: KindTemperature, Name: "T"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddDryContact(DryContact{Address: addr(1, 4, 1), Name: "D"}); err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()

	r2 := NewRegistry()
	r2.Load(snap, nil)

	if len(r2.Lights()) != 1 || len(r2.Covers()) != 1 ||
		len(r2.Sensors("")) != 1 || len(r2.DryContacts()) != 1 {
		t.Errorf("round trip lost records: %+v", r2.Counts())
	}

	cov, err := r2.GetCover(addr(1, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if cov.OpeningTimeUp != 20 {
		t.Errorf("OpeningTimeUp = %v, want 20 (calibration preserved)", cov.OpeningTimeUp)
	}
}

func TestChangeListenerFires(t *testing.T) {
	r := NewRegistry()

	var events []Kind
	r.SetOnChange(func(k Kind) { events = append(events, k) })

	if err := r.AddLight(Light{Address: addr(1, 1, 1), Name: "L"}); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteLight(addr(1, 1, 1)); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 || events[0] != KindLight || events[1] != KindLight {
		t.Errorf("events = %v, want two light notifications", events)
	}
}

func TestSensorsByModule(t *testing.T) {
	r := NewRegistry()

	if err := r.AddSensor(Sensor{Address: addr(1, 24, 1), Kind: KindHumidity, Name: "H1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddSensor(Sensor{Address: addr(1, 24, 2), Kind: KindHumidity, Name: "H2"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddSensor(Sensor{Address: addr(2, 24, 1), Kind: KindHumidity, Name: "Other"}); err != nil {
		t.Fatal(err)
	}

	got := r.SensorsByModule(KindHumidity, buspro.DeviceAddress{Subnet: 1, Device: 24})
	if len(got) != 2 {
		t.Errorf("SensorsByModule() = %d sensors, want 2", len(got))
	}
}
