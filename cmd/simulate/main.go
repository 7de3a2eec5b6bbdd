// Command simulate plays headless games with a greedy autopilot and prints a
// short report. It is handy for checking that a board configuration is
// playable and for comparing food spawn settings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/snakegame/game/config"
	"github.com/wricardo/mcp-training/snakegame/game/engine"
)

// causeTimeout marks a game that hit the tick limit without colliding
const causeTimeout = "timeout"

// GameStats records the outcome of one simulated game
type GameStats struct {
	Game   int
	Score  int
	Length int
	Ticks  int
	Cause  string
}

// Summary aggregates a batch of games
type Summary struct {
	Games     int
	BestScore int
	MeanScore float64
	MeanTicks float64
	Causes    map[string]int
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play headless snake games with a greedy autopilot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: "configs",
				Usage: "Directory containing configuration files",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration id to simulate (default: the server default)",
			},
			&cli.IntFlag{
				Name:  "games",
				Value: 10,
				Usage: "Number of games to play",
			},
			&cli.IntFlag{
				Name:  "ticks",
				Value: 2000,
				Usage: "Maximum ticks per game",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Food spawn seed (0 keeps the configured seed)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			games := cmd.Int("games")
			maxTicks := cmd.Int("ticks")
			if games <= 0 || maxTicks <= 0 {
				return fmt.Errorf("games and ticks must be positive")
			}

			manager, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				return err
			}

			cfg := manager.GetDefault()
			if id := cmd.String("config"); id != "" {
				if cfg, err = manager.LoadConfig(id); err != nil {
					return fmt.Errorf("load config %q: %w", id, err)
				}
			}

			run := *cfg
			if seed := cmd.Int("seed"); seed != 0 {
				run.Seed = int64(seed)
			}

			stats, err := simulate(&run, games, maxTicks)
			if err != nil {
				return err
			}
			printReport(out, &run, stats)
			return nil
		},
	}
}

// chooseDirection steers toward the food along the shortest Manhattan path,
// skipping moves that hit a wall or the body. It keeps the current heading
// on ties and when no move is safe.
func chooseDirection(state *engine.GameState) engine.Direction {
	head := state.Head()
	best := state.Direction
	bestDist := -1

	for _, d := range candidates(state.Direction) {
		if !state.CanTurn(d) {
			continue
		}
		next := head.Step(d)
		if !next.InBounds(state.GridSize) || engine.ContainsPosition(state.Snake, next) {
			continue
		}
		dist := engine.ManhattanDistance(next, state.Food)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

// candidates lists the current heading first so it wins ties
func candidates(current engine.Direction) []engine.Direction {
	out := []engine.Direction{current}
	for _, d := range engine.AllDirections {
		if d != current {
			out = append(out, d)
		}
	}
	return out
}

// simulate plays games back to back on one engine, so the food sequence
// carries over between games the way it does in a long-lived session.
func simulate(cfg *engine.GameConfig, games, maxTicks int) ([]GameStats, error) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	stats := make([]GameStats, 0, games)
	for game := 1; game <= games; game++ {
		eng.Reset()
		eng.Play()

		stat := GameStats{Game: game, Cause: causeTimeout}
		for stat.Ticks < maxTicks {
			eng.SetDirection(chooseDirection(eng.GetState()))
			result := eng.Tick()
			stat.Ticks++
			if result.GameOver {
				stat.Score = result.FinalScore
				stat.Length = result.FinalLength
				stat.Cause = result.Cause
				break
			}
		}
		if stat.Cause == causeTimeout {
			stat.Score = eng.GetScore()
			stat.Length = len(eng.GetSnake())
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func summarize(stats []GameStats) Summary {
	s := Summary{Games: len(stats), Causes: make(map[string]int)}
	if len(stats) == 0 {
		return s
	}

	var totalScore, totalTicks int
	for _, st := range stats {
		totalScore += st.Score
		totalTicks += st.Ticks
		if st.Score > s.BestScore {
			s.BestScore = st.Score
		}
		s.Causes[st.Cause]++
	}
	s.MeanScore = float64(totalScore) / float64(len(stats))
	s.MeanTicks = float64(totalTicks) / float64(len(stats))
	return s
}

func printReport(out io.Writer, cfg *engine.GameConfig, stats []GameStats) {
	fmt.Fprintf(out, "=== %s (%dx%d) ===\n", cfg.Name, cfg.GridSize, cfg.GridSize)
	for _, st := range stats {
		fmt.Fprintf(out, "Game %3d: score %4d  length %4d  ticks %6d  %s\n",
			st.Game, st.Score, st.Length, st.Ticks, st.Cause)
	}

	sum := summarize(stats)
	fmt.Fprintf(out, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(out, "Games: %d  Best: %d  Mean score: %.2f  Mean ticks: %.1f\n",
		sum.Games, sum.BestScore, sum.MeanScore, sum.MeanTicks)

	causes := make([]string, 0, len(sum.Causes))
	for cause := range sum.Causes {
		causes = append(causes, cause)
	}
	sort.Strings(causes)
	for _, cause := range causes {
		fmt.Fprintf(out, "  %-8s %d\n", cause+":", sum.Causes[cause])
	}
}
