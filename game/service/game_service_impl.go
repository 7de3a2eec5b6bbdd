package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
	"github.com/wricardo/mcp-training/snakegame/logging"
)

var (
	ErrLeaderboardDisabled = errors.New("leaderboard not configured")
	ErrInvalidConfigName   = errors.New("invalid config name")
)

// DefaultTopScores is the leaderboard page size when none is given
const DefaultTopScores = 10

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithScoreRecorder records finished games with a positive score
func WithScoreRecorder(recorder ScoreRecorder) Option {
	return func(s *gameServiceImpl) {
		s.scores = recorder
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.log = logger
		}
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   ScoreRecorder
	log      *zap.SugaredLogger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      logging.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configName = strings.TrimSuffix(strings.TrimSpace(configName), ".json")

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Infow("session created", "session", session.ID, "config", configID)

	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.Touch(sessionID)

	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.log.Infow("session deleted", "session", sessionID)
	return nil
}

// SetDirection buffers a turn for the next tick
func (s *gameServiceImpl) SetDirection(ctx context.Context, sessionID, direction string) (*DirectionResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.Touch(sessionID)

	accepted := sess.Engine.SetDirection(dir)
	state := sess.Engine.Snapshot()

	result := &DirectionResult{
		Accepted:  accepted,
		Requested: dir,
		Current:   state.Direction,
		Pending:   state.PendingDirection,
		GameState: state,
	}

	if accepted {
		result.Message = fmt.Sprintf("Turning %s", dir)
		result.Events = []GameEvent{{
			Type:      EventDirection,
			Message:   result.Message,
			Timestamp: time.Now(),
			Position:  state.Head(),
		}}
	} else {
		heading := state.Direction
		if dir.IsReverseOf(state.PendingDirection) {
			heading = state.PendingDirection
		}
		result.Message = fmt.Sprintf("Cannot reverse from %s to %s", heading, dir)
	}

	return result, nil
}

// Tick advances a session by one step and records the finished game on game-over
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string) (*TickOutcome, error) {
	s.mu.Lock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("session not found: %w", err)
	}

	result := sess.Engine.Tick()
	state := sess.Engine.Snapshot()
	s.sessions.Touch(sessionID)
	if result.GameOver {
		s.persist(sess.ID)
	}
	s.mu.Unlock()

	outcome := &TickOutcome{
		Result:    result,
		GameState: state,
		Events:    tickEvents(result, state),
	}

	if result.GameOver {
		s.log.Infow("game over", "session", sess.ID, "cause", result.Cause, "score", result.FinalScore)
		if entry := s.recordGame(ctx, sess, result); entry != nil {
			outcome.Recorded = entry
		}
	}

	return outcome, nil
}

// PlayPause toggles the running flag
func (s *gameServiceImpl) PlayPause(ctx context.Context, sessionID string) (*ControlResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.Touch(sessionID)

	playing := sess.Engine.PlayPause()
	state := sess.Engine.Snapshot()
	s.persist(sess.ID)

	eventType := EventPause
	if playing {
		eventType = EventPlay
	}

	return &ControlResult{
		IsPlaying: playing,
		GameState: state,
		Events: []GameEvent{{
			Type:      eventType,
			Message:   state.Message,
			Timestamp: time.Now(),
			Position:  state.Head(),
		}},
	}, nil
}

// Reset restores the initial snake and stops the game
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*ControlResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.Touch(sessionID)

	sess.Engine.Reset()
	state := sess.Engine.Snapshot()
	s.persist(sess.ID)

	return &ControlResult{
		IsPlaying: state.IsPlaying,
		GameState: state,
		Events: []GameEvent{{
			Type:      EventReset,
			Message:   state.Message,
			Timestamp: time.Now(),
			Position:  state.Head(),
		}},
	}, nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return sess.Engine.Snapshot(), nil
}

// Checkpoint writes every live session to persistence. Ticks wait until it
// finishes, so each file holds a whole step.
func (s *gameServiceImpl) Checkpoint(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := 0
	var errs []error
	for _, sess := range s.sessions.List() {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if err := s.sessions.Save(sess.ID); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// persist writes one session after a control action or game-over. Must be
// called with s.mu held.
func (s *gameServiceImpl) persist(id string) {
	if err := s.sessions.Save(id); err != nil {
		s.log.Warnw("failed to persist session", "session", id, "error", err)
	}
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if strings.TrimSpace(configName) == "" {
		return ErrInvalidConfigName
	}
	return s.configs.SaveConfig(configName, config)
}

// TopScores returns the best finished games
func (s *gameServiceImpl) TopScores(ctx context.Context, limit int) ([]*ScoreEntry, error) {
	if s.scores == nil {
		return nil, ErrLeaderboardDisabled
	}
	if limit <= 0 {
		limit = DefaultTopScores
	}
	return s.scores.Top(ctx, limit)
}

// recordGame writes a finished game to the leaderboard. Failures are logged only.
func (s *gameServiceImpl) recordGame(ctx context.Context, sess *Session, result engine.TickResult) *ScoreEntry {
	if s.scores == nil || result.FinalScore <= 0 {
		return nil
	}

	entry := &ScoreEntry{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		ConfigName: sess.ConfigID,
		Score:      result.FinalScore,
		Length:     result.FinalLength,
		Cause:      result.Cause,
		EndedAt:    time.Now(),
	}
	if err := s.scores.Record(ctx, entry); err != nil {
		s.log.Warnw("failed to record score", "session", sess.ID, "error", err)
		return nil
	}
	return entry
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// tickEvents converts a tick result into events
func tickEvents(result engine.TickResult, state *engine.GameState) []GameEvent {
	now := time.Now()
	events := []GameEvent{{
		Type:      EventTick,
		Message:   fmt.Sprintf("%s -> %s", result.Direction, formatPos(result.To)),
		Timestamp: now,
		Position:  result.To,
	}}

	switch {
	case result.GameOver:
		events = append(events, GameEvent{
			Type:      EventGameOver,
			Message:   state.Message,
			Timestamp: now,
			Position:  result.To,
		})
	case result.Ate:
		events = append(events, GameEvent{
			Type:      EventFoodEaten,
			Message:   state.Message,
			Timestamp: now,
			Position:  result.To,
		})
	}

	return events
}

func formatPos(p engine.Position) string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
