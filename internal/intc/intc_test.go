package intc

import "testing"

func TestSetOutOfRange(t *testing.T) {
	c := New()
	if err := c.Set(true, 0, 1); err == nil {
		t.Errorf("expected error for level 0")
	}
	if err := c.Set(true, 8, 1); err == nil {
		t.Errorf("expected error for level 8")
	}
}

func TestCheckHighestLevel(t *testing.T) {
	c := New()
	if any, lvl := c.Check(); any || lvl != 0 {
		t.Errorf("empty controller: any=%v lvl=%d, want false 0", any, lvl)
	}
	_ = c.Set(true, 3, 0x10)
	_ = c.Set(true, 5, 0x20)
	any, lvl := c.Check()
	if !any || lvl != 5 {
		t.Errorf("Check() = %v %d, want true 5", any, lvl)
	}
}

func TestAcknowledge(t *testing.T) {
	c := New()
	_ = c.Set(true, 5, 0x0e)
	v, err := c.Acknowledge(5)
	if err != nil || v != 0x0e {
		t.Fatalf("Acknowledge = %v, %v; want 0x0e, nil", v, err)
	}
	if any, _ := c.Check(); any {
		t.Errorf("level should be cleared after acknowledge")
	}
	if _, err := c.Acknowledge(5); err == nil {
		t.Errorf("expected Protocol error acknowledging an unasserted level")
	}
}
