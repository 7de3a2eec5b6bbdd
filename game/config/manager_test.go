package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:           "Test Config",
		Description:    "Test configuration",
		GridSize:       20,
		Origin:         &engine.Position{X: 5, Y: 5},
		InitialFood:    &engine.Position{X: 8, Y: 8},
		TickIntervalMs: 150,
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "classic", createValidConfig())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Test Config" {
			t.Errorf("Expected classic.json as default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.GridSize != engine.DefaultGridSize {
			t.Errorf("Expected built-in default config, got %+v", def)
		}
	})

	t.Run("first valid config when classic is missing", func(t *testing.T) {
		dir := t.TempDir()
		cfg := createValidConfig()
		cfg.Name = "Only One"
		writeConfigFile(t, dir, "only", cfg)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Only One" {
			t.Errorf("Expected first config as default, got %s", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "small", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("small")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.GridSize != 20 {
			t.Errorf("Expected grid size 20, got %d", config.GridSize)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		if _, err := manager.LoadConfig("small.json"); err != nil {
			t.Errorf("Failed to load config with extension: %v", err)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("small")
		second, _ := manager.LoadConfig("small")
		if first != second {
			t.Error("Expected cached config pointer on second load")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("missing"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reject path traversal", func(t *testing.T) {
		if _, err := manager.LoadConfig("../etc/passwd"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		invalid := createValidConfig()
		invalid.GridSize = 2
		writeConfigFile(t, dir, "invalid", invalid)

		if _, err := manager.LoadConfig("invalid"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{invalid"), 0644)
		if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	fast := createValidConfig()
	fast.Name = "Fast"
	fast.TickIntervalMs = 0
	fast.SafeFoodSpawn = true
	writeConfigFile(t, dir, "fast", fast)

	bad := createValidConfig()
	bad.Name = ""
	writeConfigFile(t, dir, "bad", bad)
	os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a config"), 0644)
	os.Mkdir(filepath.Join(dir, "nested.json"), 0755)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 valid configs, got %d", len(configs))
	}

	byID := map[string]int{}
	for i, c := range configs {
		byID[c.ConfigID] = i
	}
	i, ok := byID["fast"]
	if !ok {
		t.Fatal("Expected fast config to be listed")
	}
	if configs[i].TickIntervalMs != engine.DefaultTickInterval {
		t.Errorf("Expected default tick interval reported, got %d", configs[i].TickIntervalMs)
	}
	if !configs[i].SafeFoodSpawn || configs[i].Filename != "fast.json" {
		t.Errorf("Unexpected config info: %+v", configs[i])
	}
}

func TestManager_SaveAndSetDefault(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	cfg := createValidConfig()
	cfg.Name = "Saved"
	if err := manager.SaveConfig("saved", cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	if err := manager.SetDefault("saved"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "Saved" {
		t.Errorf("Expected default 'Saved', got %s", manager.GetDefault().Name)
	}

	invalid := createValidConfig()
	invalid.GridSize = 0
	if err := manager.SaveConfig("invalid", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for path name, got %v", err)
	}
	if err := manager.SetDefault("missing"); err == nil {
		t.Error("Expected error setting a missing default")
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	updated := createValidConfig()
	updated.Name = "Updated"
	writeConfigFile(t, dir, "classic", updated)

	if manager.GetDefault().Name != "Test Config" {
		t.Fatal("Expected cached default before refresh")
	}
	manager.RefreshCache()
	if manager.GetDefault().Name != "Updated" {
		t.Errorf("Expected refreshed default, got %s", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				manager.RefreshCache()
				return
			}
			if _, err := manager.LoadConfig("classic"); err != nil {
				t.Errorf("Concurrent load failed: %v", err)
			}
			_ = manager.GetDefault()
		}(i)
	}
	wg.Wait()
}
