// Package config provides configuration management for the snake game.
//
// The config package handles:
//   - Loading game configurations from JSON files
//   - Configuration validation via the engine package
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// Each configuration defines the square grid size, the origin the snake
// restarts from, the initial food cell, the tick cadence in milliseconds and
// the messages shown for game events.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("classic")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// classic.json is used as the default when present. Otherwise the first valid
// file wins, and an empty directory falls back to engine.DefaultConfig.
package config
