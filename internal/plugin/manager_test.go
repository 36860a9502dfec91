package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir string, m Manifest) {
	t.Helper()
	pluginDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{
		Name:        "system-control",
		Version:     "1.0.0",
		Description: "media keys",
		Executable:  "system-control",
		Actions:     []string{"media-next", "media-prev"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	p := plugins[0]
	if p.Manifest.Name != "system-control" {
		t.Errorf("expected plugin name 'system-control', got %q", p.Manifest.Name)
	}
	if p.Path != filepath.Join(tmpDir, "system-control") {
		t.Errorf("unexpected path %q", p.Path)
	}
	if p.Executable != filepath.Join(tmpDir, "system-control", "system-control") {
		t.Errorf("unexpected executable %q", p.Executable)
	}
	if !p.Supports("media-next") || p.Supports("volume-set") {
		t.Errorf("Supports() mismatch for actions %v", p.Manifest.Actions)
	}
}

func TestManager_Discover_MultiplePluginsSorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Executable: name})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, p := range plugins {
		if p.Manifest.Name != want[i] {
			t.Errorf("plugins[%d] = %q, want %q", i, p.Manifest.Name, want[i])
		}
	}
}

func TestManager_Discover_SkipsBrokenManifests(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "good", Executable: "good"})

	badDir := filepath.Join(tmpDir, "bad")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "plugin.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, tmpDir, Manifest{Name: "noexec"})
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if n := len(manager.List()); n != 1 {
		t.Errorf("expected only the valid plugin, got %d", n)
	}
}

func TestManager_Discover_FiltersOS(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "mac-only", Executable: "x", OS: []string{"darwin"}})
	writeManifest(t, tmpDir, Manifest{Name: "anywhere", Executable: "x"})

	manager := NewManager(tmpDir)
	manager.goos = "linux"
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if _, err := manager.Get("mac-only"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected mac-only plugin to be filtered, got %v", err)
	}
	if _, err := manager.Get("anywhere"); err != nil {
		t.Errorf("Get(anywhere) error = %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on missing dir should not fail: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Errorf("expected no plugins")
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())
	if _, err := manager.Get("nope"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_FindAction(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "b-media", Executable: "x", Actions: []string{"media-next"}})
	writeManifest(t, tmpDir, Manifest{Name: "a-media", Executable: "x", Actions: []string{"media-next", "media-prev"}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	p, err := manager.FindAction("media-next")
	if err != nil {
		t.Fatalf("FindAction() error = %v", err)
	}
	if p.Manifest.Name != "a-media" {
		t.Errorf("expected first plugin by name, got %q", p.Manifest.Name)
	}
	if _, err := manager.FindAction("volume-set"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	if got := NewManager("/opt/mudra/plugins").PluginDir(); got != "/opt/mudra/plugins" {
		t.Errorf("unexpected plugin dir %q", got)
	}
}
