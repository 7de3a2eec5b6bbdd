// Package websocket provides WebSocket transport for the snake game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every tick and control change
//   - Keyboard-style input from clients
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns the client registry on its Run goroutine. Each client
// has a read pump and a write pump. Broadcasts are queued on a buffered
// channel and dropped with a warning if the queue is full, so the tick
// scheduler never blocks on slow clients.
//
// Message Protocol:
//
//   - Incoming: {"type":"direction","direction":"up"} or {"type":"play_pause"}
//   - Outgoing: {"session_id":"abc1","event":"state_update","game_state":{...}}
//   - Errors:   {"session_id":"abc1","event":"error","data":"..."}
//
// Clients pick their session with the session query parameter when
// connecting. Incoming messages are passed to the hub's InputHandler.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetInputHandler(server)
//	go hub.Run()
//
//	hub.BroadcastToSession(sessionID, state)
package websocket
