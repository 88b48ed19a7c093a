package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/system"
)

func TestLoadBuildsDevicesFromFile(t *testing.T) {
	sys := system.New()
	sys.ProgramBus.Insert(0, bus.NewMemoryBlock(0x10000, false))
	sys.DataBus.Insert(0x1000, bus.NewMemoryBlock(0x100, false))

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sys.cfg")
	diskPath := filepath.Join(dir, "disk.img")
	contents := "# a comment\n" +
		"TIMER data 0x2000 name=tick level=3 vector=0x20\n" +
		"STORAGE data 0x3000 path=" + diskPath + " level=4 vector=0x30\n"
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := Load(cfgPath, sys); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, _, err := sys.DataBus.GetDeviceAt(0x2000, 1); err != nil {
		t.Errorf("timer not mapped: %v", err)
	}
	if _, _, err := sys.DataBus.GetDeviceAt(0x3000, 1); err != nil {
		t.Errorf("storage not mapped: %v", err)
	}
}

func TestLoadRejectsUnknownKeyword(t *testing.T) {
	sys := system.New()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.cfg")
	if err := os.WriteFile(cfgPath, []byte("BOGUS program 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := Load(cfgPath, sys); err == nil {
		t.Fatalf("expected error for unknown keyword")
	}
}
