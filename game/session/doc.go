// Package session provides session management for the snake game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Optional JSON file persistence
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own engine instance along with the config id it was
// created from and its creation and last access times.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand, retried on collision.
// Lookups are case-insensitive. Caller-chosen IDs are limited to letters,
// digits, dashes and underscores since they double as file names.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//	sessions := manager.List()
//
// Persistence:
//
// NewManagerWithPersistence saves a session on creation and whenever Save or
// SaveAllSessions is called. Touch only updates the access time, so ticking
// a board never writes to disk. Sessions missing from memory are loaded
// lazily on Get, and LoadPersistedSessions restores everything at startup.
// Restored games are paused.
package session
