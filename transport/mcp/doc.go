// Package mcp provides the Model Context Protocol interface for the snake game.
//
// Client is a thin MCP server whose tools proxy to the REST API, so agents
// and browsers see the same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: board drawn as text plus score and direction
//   - set_direction: queue a turn for the next tick
//   - tick: advance one or more steps, stopping at game over
//   - play_pause: start or stop the server-side tick loop
//   - reset_game: restore the initial snake
//   - list_configs, top_scores, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handled with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
