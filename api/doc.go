// Package api provides HTTP REST API handlers for the snake game.
//
// The api package implements:
//   - Session management endpoints
//   - Direction, tick, play/pause and reset controls
//   - Configuration listing and creation
//   - Leaderboard and scheduler metrics
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id":"small"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Sessions for a multi-board view
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Stop and delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/direction - Buffer a turn ({"direction":"up"})
//   - POST /api/sessions/{id}/tick - Advance one step by hand
//   - POST /api/sessions/{id}/play-pause - Toggle the tick loop
//   - POST /api/sessions/{id}/reset - Restore the initial snake
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get one configuration
//   - POST /api/configs - Save a configuration (?id= picks the file name)
//
// Other:
//   - GET /api/scores?limit=N - Best finished games
//   - GET /api/metrics - Tick scheduler counters
//   - GET /healthz - Liveness check
//   - GET /ws?session={id} - Live state stream
//
// Play/pause, reset and delete stop the session's tick loop before touching
// the game, so no scheduled tick lands after a pause.
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown sessions and
// configs map to 404, bad directions and invalid configs to 400, and a
// missing leaderboard to 503.
package api
