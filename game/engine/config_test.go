package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GameConfig)
		wantErr string
	}{
		{"valid", func(c *GameConfig) {}, ""},
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"grid too small", func(c *GameConfig) { c.GridSize = MinGridSize - 1 }, "grid_size"},
		{"grid too large", func(c *GameConfig) { c.GridSize = MaxGridSize + 1 }, "grid_size"},
		{"tick too fast", func(c *GameConfig) { c.TickIntervalMs = 5 }, "tick_interval_ms"},
		{"tick too slow", func(c *GameConfig) { c.TickIntervalMs = MaxTickIntervalMs + 1 }, "tick_interval_ms"},
		{"zero tick uses default", func(c *GameConfig) { c.TickIntervalMs = 0 }, ""},
		{"origin outside", func(c *GameConfig) { c.Origin = &Position{X: 40, Y: 0} }, "origin"},
		{"food outside", func(c *GameConfig) { c.InitialFood = &Position{X: 0, Y: -1} }, "initial_food"},
		{"food on origin", func(c *GameConfig) { c.InitialFood = &Position{X: 10, Y: 10} }, "overlap"},
		{"food message without score", func(c *GameConfig) { c.Messages.FoodEaten = "Yum" }, "food_eaten"},
		{"defaults on small grid", func(c *GameConfig) { c.GridSize = 5; c.Origin = nil; c.InitialFood = nil }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.mutate(config)
			err := ValidateGameConfig(config)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := ValidateGameConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestConfigDefaults(t *testing.T) {
	config := &GameConfig{Name: "bare", GridSize: 40}

	if config.OriginOrDefault() != (Position{X: 10, Y: 10}) {
		t.Errorf("Expected default origin (10,10), got %v", config.OriginOrDefault())
	}
	if config.InitialFoodOrDefault() != (Position{X: 15, Y: 15}) {
		t.Errorf("Expected default food (15,15), got %v", config.InitialFoodOrDefault())
	}
	if config.TickInterval() != 200*time.Millisecond {
		t.Errorf("Expected 200ms, got %v", config.TickInterval())
	}

	small := &GameConfig{Name: "small", GridSize: 5}
	if small.OriginOrDefault() == small.InitialFoodOrDefault() {
		t.Error("Expected clamped defaults not to collide")
	}
	if !small.OriginOrDefault().InBounds(5) || !small.InitialFoodOrDefault().InBounds(5) {
		t.Error("Expected clamped defaults inside the grid")
	}

	full := config.withDefaults()
	if full.Messages != DefaultMessages() {
		t.Errorf("Expected default messages, got %+v", full.Messages)
	}
	if config.Messages.Welcome != "" {
		t.Error("withDefaults must not modify the receiver")
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()

	valid := createTestConfig()
	data, err := json.MarshalIndent(valid, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	validPath := filepath.Join(dir, "valid.json")
	if err := os.WriteFile(validPath, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loaded, err := LoadGameConfig(validPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Name != valid.Name || loaded.GridSize != valid.GridSize {
		t.Errorf("Loaded config mismatch: %+v", loaded)
	}
	if *loaded.Origin != *valid.Origin {
		t.Errorf("Expected origin %v, got %v", *valid.Origin, *loaded.Origin)
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadGameConfig(filepath.Join(dir, "missing.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		if _, err := LoadGameConfig(path); err == nil {
			t.Error("Expected parse error")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		os.WriteFile(path, []byte(`{"name":"x","grid_size":2}`), 0644)
		if _, err := LoadGameConfig(path); err == nil {
			t.Error("Expected validation error")
		}
	})

	t.Run("CONFIG_DIR override", func(t *testing.T) {
		t.Setenv("CONFIG_DIR", dir)
		if _, err := LoadGameConfig("configs/valid.json"); err != nil {
			t.Errorf("Expected CONFIG_DIR to redirect configs/ paths, got %v", err)
		}
	})
}

func TestInitGameStateFromConfig(t *testing.T) {
	state := InitGameStateFromConfig(nil)
	if state.GridSize != DefaultGridSize || state.ConfigName != "classic" {
		t.Errorf("Expected classic defaults, got grid=%d name=%s", state.GridSize, state.ConfigName)
	}
	if len(state.Snake) != 1 || state.Head() != (Position{X: 10, Y: 10}) {
		t.Errorf("Expected single segment at origin, got %v", state.Snake)
	}
	if state.Food != (Position{X: 15, Y: 15}) {
		t.Errorf("Expected food at (15,15), got %v", state.Food)
	}
	if state.Direction != Right || state.PendingDirection != Right {
		t.Errorf("Expected heading right, got %s/%s", state.Direction, state.PendingDirection)
	}
	if state.IsPlaying || state.GameOver || state.Score != 0 || state.HighScore != 0 {
		t.Errorf("Expected idle zeroed state, got %+v", state)
	}
}
