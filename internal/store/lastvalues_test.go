package store

import "testing"

func TestLastValuesSuppressesDuplicates(t *testing.T) {
	c := NewLastValues()

	if !c.Changed("light:1.1.1", `{"state":"ON"}`) {
		t.Error("first publish should report changed")
	}
	if c.Changed("light:1.1.1", `{"state":"ON"}`) {
		t.Error("identical payload should be suppressed")
	}
	if !c.Changed("light:1.1.1", `{"state":"OFF"}`) {
		t.Error("different payload should report changed")
	}
}

func TestLastValuesForget(t *testing.T) {
	c := NewLastValues()

	c.Changed("cover:1.50.1", "x")
	c.Forget("cover:1.50.1")

	if !c.Changed("cover:1.50.1", "x") {
		t.Error("forgotten key should publish again")
	}
}

func TestLastValuesSeed(t *testing.T) {
	c := NewLastValues()
	c.Seed(map[string]string{"temp:1.24.1": "21.5"})

	if c.Changed("temp:1.24.1", "21.5") {
		t.Error("seeded value should suppress identical publish")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
