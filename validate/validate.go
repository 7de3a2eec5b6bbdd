// Command validate checks snake board configuration files. It reports:
//   - JSON structure, including unknown keys that usually mean a typo
//   - Grid size and tick interval ranges
//   - Origin and first food inside the board and apart from each other
//   - A first move that does not run straight into the right wall
//   - Message placeholders (food_eaten needs exactly one %d)
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
)

var errInvalidConfigs = errors.New("some configurations have errors")

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file.
// Every problem is collected rather than stopping at the first one.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if strings.TrimSpace(config.Name) == "" {
		result.fail("name is required")
	}

	gridOK := config.GridSize >= engine.MinGridSize && config.GridSize <= engine.MaxGridSize
	if !gridOK {
		result.fail("grid_size must be between %d and %d, got %d",
			engine.MinGridSize, engine.MaxGridSize, config.GridSize)
	}

	if config.TickIntervalMs < 0 ||
		(config.TickIntervalMs != 0 && (config.TickIntervalMs < engine.MinTickIntervalMs || config.TickIntervalMs > engine.MaxTickIntervalMs)) {
		result.fail("tick_interval_ms must be between %d and %d (or 0 for the default), got %d",
			engine.MinTickIntervalMs, engine.MaxTickIntervalMs, config.TickIntervalMs)
	}

	origin := config.OriginOrDefault()
	food := config.InitialFoodOrDefault()
	if gridOK {
		if !origin.InBounds(config.GridSize) {
			result.fail("origin (%d,%d) is outside the %dx%d grid", origin.X, origin.Y, config.GridSize, config.GridSize)
		} else if !origin.Step(engine.Right).InBounds(config.GridSize) {
			result.fail("origin (%d,%d) is on the right edge; the first tick would hit the wall", origin.X, origin.Y)
		}
		if !food.InBounds(config.GridSize) {
			result.fail("initial_food (%d,%d) is outside the %dx%d grid", food.X, food.Y, config.GridSize, config.GridSize)
		}
		if food == origin {
			result.fail("initial_food must not overlap the origin (%d,%d)", origin.X, origin.Y)
		}
	}

	validateMessages(&result, config.Messages)

	// The engine has the final say; anything it rejects that the checks
	// above missed still fails the file.
	if result.Valid {
		if err := engine.ValidateGameConfig(&config); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid {
		spawn := "classic (may land on the snake)"
		if config.SafeFoodSpawn {
			spawn = "safe"
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", config.GridSize, config.GridSize))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Tick: %s", config.TickInterval()))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Origin: (%d,%d) First food: (%d,%d) Distance: %d",
			origin.X, origin.Y, food.X, food.Y, engine.ManhattanDistance(origin, food)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Food spawn: %s", spawn))
	}

	return result
}

// validateMessages checks format verbs. Only food_eaten is formatted, with the
// score; every other message is shown verbatim.
func validateMessages(result *ValidationResult, m engine.Messages) {
	if m.FoodEaten != "" {
		if n := strings.Count(m.FoodEaten, "%d"); n != 1 {
			result.fail("messages.food_eaten must contain exactly one %%d, found %d", n)
		}
	}

	verbatim := []struct{ key, text string }{
		{"welcome", m.Welcome},
		{"wall_collision", m.WallCollision},
		{"self_collision", m.SelfCollision},
		{"paused", m.Paused},
		{"resumed", m.Resumed},
		{"reset", m.Reset},
	}
	for _, msg := range verbatim {
		if strings.Contains(msg.text, "%") {
			result.fail("messages.%s must not contain format verbs", msg.key)
		}
	}
}

// collectFiles expands directories into their *.json files
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// report prints one block per file and returns whether all of them passed
func report(out io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(out, "  "+info)
			}
			continue
		}

		fmt.Fprintln(out, "❌ INVALID")
		allValid = false
		for _, err := range result.Errors {
			if !strings.HasPrefix(err, "✓") {
				fmt.Fprintln(out, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(out, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(out, "❌ Some configurations have errors")
	}
	return allValid
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate snake board configuration files",
		ArgsUsage: "[file or directory ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "../configs",
				Usage: "Directory scanned when no arguments are given",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{cmd.String("dir")}
			}

			files, err := collectFiles(paths)
			if err != nil {
				return fmt.Errorf("error finding config files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no config files found in %s", strings.Join(paths, ", "))
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file))
			}
			if !report(out, results) {
				return errInvalidConfigs
			}
			return nil
		},
	}
}

// main validates ../configs (or the given paths), printing a concise report
// and exiting with non-zero status if any file is invalid.
func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalidConfigs) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
