package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/snakegame/game/service"
	"github.com/wricardo/mcp-training/snakegame/transport/mcp"
)

func testOptions(t *testing.T) options {
	t.Helper()
	return options{
		Host:        "localhost",
		Port:        8080,
		ConfigDir:   "configs",
		SessionsDir: filepath.Join(t.TempDir(), "sessions"),
		ScoresDB:    filepath.Join(t.TempDir(), "scores.db"),
	}
}

// unsetEnv clears variables for the test and restores them afterwards
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Snake Game Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	a, err := initializeServices(testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.close()

	if a.store == nil {
		t.Error("Expected leaderboard store to be opened")
	}

	ctx := context.Background()
	info, err := a.service.CreateSession(ctx, "small")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.GameConfig.GridSize != 10 {
		t.Errorf("Expected small config, got grid %d", info.GameConfig.GridSize)
	}

	scores, err := a.service.TopScores(ctx, 5)
	if err != nil {
		t.Errorf("Expected empty leaderboard, got error %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Expected no scores, got %d", len(scores))
	}
}

func TestInitializeServices_NoLeaderboard(t *testing.T) {
	opts := testOptions(t)
	opts.ScoresDB = ""

	a, err := initializeServices(opts)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.close()

	if _, err := a.service.TopScores(context.Background(), 5); !errors.Is(err, service.ErrLeaderboardDisabled) {
		t.Errorf("Expected ErrLeaderboardDisabled, got %v", err)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	opts := testOptions(t)
	opts.ConfigDir = "/non/existent/path"

	if _, err := initializeServices(opts); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_RestoresSessions(t *testing.T) {
	opts := testOptions(t)

	first, err := initializeServices(opts)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	info, err := first.service.CreateSession(context.Background(), "classic")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	first.close()

	second, err := initializeServices(opts)
	if err != nil {
		t.Fatalf("Failed to reinitialize services: %v", err)
	}
	defer second.close()

	restored, err := second.service.GetSession(context.Background(), info.ID)
	if err != nil {
		t.Fatalf("Expected session %s to be restored: %v", info.ID, err)
	}
	if restored.GameState.IsPlaying {
		t.Error("Expected restored session to be paused")
	}
}

func TestCommandFlags(t *testing.T) {
	unsetEnv(t, "HOST", "PORT", "CONFIG_DIR", "SESSIONS_DIR", "SCORES_DB", "LOG_FILE", "DEBUG",
		"NGROK_ENABLED", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN", "NGROK_DOMAIN")

	tests := []struct {
		name   string
		args   []string
		env    map[string]string
		verify func(t *testing.T, got options)
	}{
		{
			name: "defaults",
			args: []string{"snakegame"},
			verify: func(t *testing.T, got options) {
				if got.Port != 8080 || got.Host != "localhost" {
					t.Errorf("Unexpected address %s", got.addr())
				}
				if got.ConfigDir != "configs" || got.SessionsDir != "sessions" {
					t.Errorf("Unexpected directories: %+v", got)
				}
				if got.ScoresDB == "" {
					t.Error("Expected a default leaderboard path")
				}
				if got.Debug || got.Ngrok {
					t.Error("Expected debug and ngrok off by default")
				}
			},
		},
		{
			name: "flags",
			args: []string{"snakegame", "--port", "9090", "--debug", "--scores-db", ""},
			verify: func(t *testing.T, got options) {
				if got.Port != 9090 {
					t.Errorf("Expected port 9090, got %d", got.Port)
				}
				if !got.Debug {
					t.Error("Expected debug on")
				}
				if got.ScoresDB != "" {
					t.Errorf("Expected leaderboard disabled, got %q", got.ScoresDB)
				}
			},
		},
		{
			name: "environment fallbacks",
			args: []string{"snakegame"},
			env:  map[string]string{"CONFIG_DIR": "/srv/configs", "NGROK_AUTH_TOKEN": "tok"},
			verify: func(t *testing.T, got options) {
				if got.ConfigDir != "/srv/configs" {
					t.Errorf("Expected CONFIG_DIR fallback, got %q", got.ConfigDir)
				}
				if got.NgrokAuth != "tok" {
					t.Errorf("Expected NGROK_AUTH_TOKEN fallback, got %q", got.NgrokAuth)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var got options
			cmd := newCommand()
			cmd.Action = func(ctx context.Context, c *cli.Command) error {
				got = optionsFromCommand(c)
				return nil
			}
			if err := cmd.Run(context.Background(), tt.args); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			tt.verify(t, got)
		})
	}
}

func TestCommandSubcommands(t *testing.T) {
	unsetEnv(t, "HOST", "PORT")

	for _, args := range [][]string{
		{"snakegame", "--host", "0.0.0.0", "server"},
		{"snakegame", "http", "--host", "0.0.0.0"},
	} {
		var got options
		cmd := newCommand()
		cmd.Commands[0].Action = func(ctx context.Context, c *cli.Command) error {
			got = optionsFromCommand(c)
			return nil
		}
		if err := cmd.Run(context.Background(), args); err != nil {
			t.Fatalf("Run %v failed: %v", args, err)
		}
		if got.Host != "0.0.0.0" {
			t.Errorf("%v: expected host 0.0.0.0, got %q", args, got.Host)
		}
	}

	var stdio bool
	cmd := newCommand()
	cmd.Commands[1].Action = func(ctx context.Context, c *cli.Command) error {
		stdio = true
		return nil
	}
	if err := cmd.Run(context.Background(), []string{"snakegame", "mcp"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !stdio {
		t.Error("Expected mcp alias to select stdio-mcp")
	}
}

func TestRootHandler(t *testing.T) {
	a, err := initializeServices(testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.start(ctx)
	defer a.close()

	ts := httptest.NewServer(newRootHandler(a, mcp.NewClient("http://127.0.0.1:0")))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", strings.NewReader(`{"config_id":"small"}`))
	if err != nil {
		t.Fatalf("POST /api/sessions failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", resp.StatusCode)
	}

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	resp, err = http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(initialize))
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	defer resp.Body.Close()

	var rpc struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		t.Fatalf("Failed to decode MCP response: %v", err)
	}
	if rpc.Result.ServerInfo.Name != "Snake Game" {
		t.Errorf("Expected Snake Game server info, got %q", rpc.Result.ServerInfo.Name)
	}
}

type countingCheckpointer struct {
	calls atomic.Int32
}

func (c *countingCheckpointer) Checkpoint(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, errors.New("disk full")
}

func TestSessionSaveRoutine(t *testing.T) {
	cp := &countingCheckpointer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sessionSaveRoutine(ctx, cp, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for cp.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected routine to stop when the context ends")
	}
	if cp.calls.Load() < 2 {
		t.Errorf("Expected repeated checkpoints despite errors, got %d", cp.calls.Load())
	}
}

func TestApp_ServiceCheckpoints(t *testing.T) {
	a, err := initializeServices(testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.close()

	info, err := a.service.CreateSession(context.Background(), "small")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := a.service.Tick(context.Background(), info.ID); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	cp, ok := a.service.(service.Checkpointer)
	if !ok {
		t.Fatal("Expected the game service to support checkpoints")
	}
	if saved, err := cp.Checkpoint(context.Background()); err != nil || saved != 1 {
		t.Fatalf("Expected one session checkpointed, got %d (%v)", saved, err)
	}

	restored, err := a.persist.Load(info.ID)
	if err != nil {
		t.Fatalf("Failed to load checkpointed session: %v", err)
	}
	if restored.Engine.GetState().TickCount != 1 {
		t.Errorf("Expected checkpoint to carry the tick, got tick count %d", restored.Engine.GetState().TickCount)
	}
}

func TestExternalServerAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !externalServerAvailable(healthy.URL) {
		t.Error("Expected healthy server to be detected")
	}

	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	if externalServerAvailable(notFound.URL) {
		t.Error("Expected server without /healthz to be ignored")
	}
}
