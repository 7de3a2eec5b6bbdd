// Package service provides the business logic layer for the snake game.
//
// The service package implements:
//   - Multi-session game management
//   - Direction intake, ticking and play/pause control per session
//   - Configuration listing and loading
//   - Recording finished games on the leaderboard
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// ScoreRecorder stores finished games.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP), the
// tick scheduler and the game engine. An engine is not safe for concurrent
// use, so every mutation goes through the service mutex and callers only see
// detached snapshots of the state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithScoreRecorder(store))
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.SetDirection(ctx, info.ID, "up")
//	outcome, err := gameService.Tick(ctx, info.ID)
package service
