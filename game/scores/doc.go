// Package scores is the leaderboard: finished games stored in SQLite through
// the pure Go modernc.org/sqlite driver.
//
//	store, err := scores.Open("data/scores.db")
//	svc := service.NewGameService(sessions, configs, service.WithScoreRecorder(store))
//
// Use MemoryDSN for a throwaway database in tests.
package scores
