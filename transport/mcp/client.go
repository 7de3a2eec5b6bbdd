package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
	"github.com/wricardo/mcp-training/snakegame/game/service"
)

const (
	// maxTickSteps caps the steps a single tick call may run
	maxTickSteps = 50

	// maxDrawnGrid is the largest board rendered as text
	maxDrawnGrid = 40
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Snake Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Snake Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer the snake to the food (*). Each food adds one segment and one point.
Hitting a wall or the snake's own body ends the game.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current board and score
- set_direction: Queue a turn (up/down/left/right) for the next tick
- tick: Advance the game by one or more steps
- play_pause: Start or stop the real-time tick loop
- reset_game: Restore the initial snake
- list_configs: List available configurations
- top_scores: Show the leaderboard
- game_instructions: Get rules and strategy tips

TIP: Agents usually play turn by turn: set_direction, then tick, then look at game_state.`),
	)

	c.registerTools()
}

func sessionIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with the board drawn as text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_direction",
		Description: "Queue a turn for the next tick. Reversing onto the snake's own neck is rejected.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to turn",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you are turning (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleSetDirection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the game by one or more steps. Stops early on game over.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Number of steps (default 1, max %d)", maxTickSteps),
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_pause",
		Description: "Start or stop the real-time tick loop for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handlePlayPause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the snake to its starting position. Score resets; high score is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDSchema(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "top_scores",
		Description: "Show the best finished games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries (default 10)",
				},
			},
		},
	}, c.handleTopScores)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score, status := 0, "paused"
		if s.GameState != nil {
			score = s.GameState.Score
			status = statusLabel(s.GameState)
		}
		fmt.Fprintf(&result, "- %s (Config: %s, Score: %d, %s, Created: %s)\n",
			s.ID, s.ConfigName, score, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSetDirection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)

	// intent is for the caller's own reasoning only
	_, _ = args["intent"].(string)

	var result service.DirectionResult
	body := map[string]string{"direction": direction}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/direction"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDirectionResult(&result)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	steps := 1
	if n, ok := args["steps"].(float64); ok && n >= 1 {
		steps = int(n)
	}
	if steps > maxTickSteps {
		steps = maxTickSteps
	}

	var lines []string
	var last service.TickOutcome
	for i := 0; i < steps; i++ {
		var outcome service.TickOutcome
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), nil, &outcome); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		last = outcome
		lines = append(lines, formatTickLine(i+1, &outcome))
		if outcome.Result.GameOver {
			break
		}
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Ran %d of %d steps:\n", len(lines), steps)
	for _, line := range lines {
		result.WriteString(line + "\n")
	}
	if last.Recorded != nil {
		fmt.Fprintf(&result, "\n🏆 Score %d recorded on the leaderboard\n", last.Recorded.Score)
	}
	result.WriteString("\n" + formatGameState(last.GameState))

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handlePlayPause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.ControlResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/play-pause"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := "⏸ Paused"
	if result.IsPlaying {
		status = "▶ Playing (the server ticks in real time)"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", status, formatGameState(result.GameState))), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.ControlResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Game reset\n\n" + formatGameState(result.GameState)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&result, "• %s (id: %s)\n  %s\n  Grid: %dx%d, Tick: %dms",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.GridSize, cfg.GridSize, cfg.TickIntervalMs)
		if cfg.SafeFoodSpawn {
			result.WriteString(", food never spawns under the snake")
		}
		result.WriteString("\n\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleTopScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/scores"
	if n, ok := arguments(request)["limit"].(float64); ok && n > 0 {
		path += fmt.Sprintf("?limit=%d", int(n))
	}

	var response struct {
		Count  int                  `json:"count"`
		Scores []service.ScoreEntry `json:"scores"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No finished games yet"), nil
	}

	var result strings.Builder
	result.WriteString("Leaderboard:\n\n")
	for i, e := range response.Scores {
		fmt.Fprintf(&result, "%2d. %4d pts  length %-3d  %-6s  session %s (%s) %s\n",
			i+1, e.Score, e.Length, e.Cause, e.SessionID, e.ConfigName, e.EndedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🐍 Snake Game - Complete Instructions

GAME OBJECTIVE:
Eat as much food as possible without crashing.

GAME MECHANICS:
• The snake moves one cell per tick in its current direction
• Eating food grows the snake by one segment and adds one point
• New food appears at a random cell
• Running into a wall or into the snake's own body ends the game
• The high score survives game overs and resets

GRID LEGEND:
• H - Snake head
• o - Snake body
• * - Food
• . - Empty cell
Coordinates are (x,y) with (0,0) in the top-left corner; y grows downward.

MOVEMENT COMMANDS:
• set_direction queues a turn; it is applied at the start of the next tick
• A turn straight back onto the neck (e.g. left while moving right) is rejected
• Only the last accepted turn before a tick counts
• tick advances the game; pass steps to run several ticks in one call

REAL-TIME PLAY:
• play_pause starts a loop on the server that ticks at the config's interval
• Call play_pause again to stop it; reset_game also stops it

STRATEGY TIPS:
• Plan the path to the food before turning; count cells with the coordinates
• Keep away from walls when the snake gets long
• Avoid closing the snake into a pocket formed by its own body
• After a game over, set_direction or play_pause starts a new game

Good luck and have fun!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatters

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func statusLabel(state *engine.GameState) string {
	switch {
	case state.GameOver:
		return "game over"
	case state.IsPlaying:
		return "playing"
	default:
		return "paused"
	}
}

func formatGameState(state *engine.GameState) string {
	if state == nil || len(state.Snake) == 0 {
		return "No game state available"
	}

	var result strings.Builder
	head := state.Head()

	fmt.Fprintf(&result, "Head: (%d,%d) | Direction: %s | Length: %d | Score: %d | High score: %d | Ticks: %d\n",
		head.X, head.Y, state.Direction, state.Length(), state.Score, state.HighScore, state.TickCount)
	fmt.Fprintf(&result, "Food: (%d,%d) | Status: %s", state.Food.X, state.Food.Y, statusLabel(state))
	if state.PendingDirection != "" && state.PendingDirection != state.Direction {
		fmt.Fprintf(&result, " | Next turn: %s", state.PendingDirection)
	}
	result.WriteString("\n\n")

	if grid := formatGrid(state); grid != "" {
		result.WriteString(grid)
	} else {
		fmt.Fprintf(&result, "(%dx%d board too large to draw)\n", state.GridSize, state.GridSize)
	}

	if state.GameOver {
		result.WriteString("\n💀 GAME OVER")
		if state.LastCollision != "" {
			fmt.Fprintf(&result, " (%s collision)", state.LastCollision)
		}
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

// formatGrid draws the board; the head wins over food when they share a cell
func formatGrid(state *engine.GameState) string {
	size := state.GridSize
	if size <= 0 || size > maxDrawnGrid {
		return ""
	}

	rows := make([][]byte, size)
	for y := range rows {
		rows[y] = bytes.Repeat([]byte{'.'}, size)
	}

	put := func(p engine.Position, ch byte) {
		if p.InBounds(size) {
			rows[p.Y][p.X] = ch
		}
	}

	put(state.Food, '*')
	for _, seg := range state.Snake[1:] {
		put(seg, 'o')
	}
	put(state.Head(), 'H')

	var b strings.Builder
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatDirectionResult(result *service.DirectionResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "✓ Turn queued: %s (moving %s until the next tick)\n", result.Requested, result.Current)
	} else {
		fmt.Fprintf(&b, "✗ Turn rejected: %s\n", result.Message)
	}
	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatTickLine(step int, outcome *service.TickOutcome) string {
	r := outcome.Result
	switch {
	case r.GameOver:
		return fmt.Sprintf("%2d. %s → game over (%s), final score %d, length %d",
			step, r.Direction, r.Cause, r.FinalScore, r.FinalLength)
	case r.Ate:
		return fmt.Sprintf("%2d. %s (%d,%d)→(%d,%d) ate food, score %d",
			step, r.Direction, r.From.X, r.From.Y, r.To.X, r.To.Y, r.Score)
	default:
		return fmt.Sprintf("%2d. %s (%d,%d)→(%d,%d)",
			step, r.Direction, r.From.X, r.From.Y, r.To.X, r.To.Y)
	}
}
