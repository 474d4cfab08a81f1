package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edmondoalex/buspro-core/internal/bridges/buspro"
	"github.com/edmondoalex/buspro-core/internal/device"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if len(s.States()) != 0 {
		t.Error("missing file should start with empty states")
	}
}

func TestCorruptFileQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if len(s.States()) != 0 || len(s.Devices().Lights) != 0 {
		t.Error("corrupt file should yield empty state")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "state.json.corrupt.") {
			found = true
		}
		if e.Name() == "state.json" {
			t.Error("corrupt file was not renamed away")
		}
	}
	if !found {
		t.Error("no state.json.corrupt.* quarantine file created")
	}
}

func TestFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	s.SetDevices(device.Devices{
		Lights: []device.Light{{
			Address: buspro.ChannelAddress{Subnet: 1, Device: 100, Channel: 2},
			Name:    "Kitchen",
		}},
	})
	s.SetState("light:1.100.2", json.RawMessage(`{"state":"ON","brightness":128}`))
	s.SetUI(UIConfig{GroupOrder: []string{"kitchen"}})

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	reloaded, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(reloaded.Devices().Lights) != 1 {
		t.Error("devices lost across flush/reload")
	}
	if v, ok := reloaded.State("light:1.100.2"); !ok || string(v) != `{"state":"ON","brightness":128}` {
		t.Errorf("state lost across flush/reload: %s", v)
	}
	if got := reloaded.UI().GroupOrder; len(got) != 1 || got[0] != "kitchen" {
		t.Errorf("ui lost across flush/reload: %v", got)
	}
}

func TestMigrateState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	s.SetState("cover:1.50.1", json.RawMessage(`{"state":"open","position":100}`))
	s.MigrateState("cover:1.50.1", "cover:1.50.9")

	if _, ok := s.State("cover:1.50.1"); ok {
		t.Error("old key still present after migration")
	}
	if v, ok := s.State("cover:1.50.9"); !ok || string(v) != `{"state":"open","position":100}` {
		t.Errorf("migrated state = %s, want original payload", v)
	}
}

func TestFlushCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("flushed file missing: %v", err)
	}
}

func TestExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	s.SetState("light:1.1.1", json.RawMessage(`"ON"`))
	doc := s.Export()

	s2, err := Open(filepath.Join(t.TempDir(), "other.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	s2.Import(doc)

	if v, ok := s2.State("light:1.1.1"); !ok || string(v) != `"ON"` {
		t.Errorf("import lost state: %s", v)
	}
}
