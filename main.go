// Command snakegame starts the snake game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config and session directories, the leaderboard
// database, logging, and optional ngrok tunneling for easy external access
// during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/snakegame/api"
	"github.com/wricardo/mcp-training/snakegame/game/config"
	"github.com/wricardo/mcp-training/snakegame/game/runner"
	"github.com/wricardo/mcp-training/snakegame/game/scores"
	"github.com/wricardo/mcp-training/snakegame/game/service"
	"github.com/wricardo/mcp-training/snakegame/game/session"
	"github.com/wricardo/mcp-training/snakegame/logging"
	"github.com/wricardo/mcp-training/snakegame/transport/mcp"
	"github.com/wricardo/mcp-training/snakegame/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Snake Game Server"
)

const (
	sessionMaxAge        = 24 * time.Hour
	sessionCleanupPeriod = 1 * time.Hour
	filesystemSyncPeriod = 5 * time.Second
	sessionSavePeriod    = 30 * time.Second
)

// options holds the resolved command line flags
type options struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	ScoresDB    string
	LogFile     string
	Debug       bool
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// globalFlags are shared by every mode
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
		&cli.StringFlag{Name: "scores-db", Value: "data/scores.db", Usage: "SQLite leaderboard path (empty disables the leaderboard)", Sources: cli.EnvVars("SCORES_DB")},
		&cli.StringFlag{Name: "log-file", Usage: "Also write logs to this rolling file", Sources: cli.EnvVars("LOG_FILE")},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func optionsFromCommand(cmd *cli.Command) options {
	return options{
		Host:        cmd.String("host"),
		Port:        cmd.Int("port"),
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		ScoresDB:    cmd.String("scores-db"),
		LogFile:     cmd.String("log-file"),
		Debug:       cmd.Bool("debug"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// newCommand builds the CLI. Running without a subcommand starts the server.
func newCommand() *cli.Command {
	serve := func(ctx context.Context, cmd *cli.Command) error {
		return runHTTPServer(ctx, optionsFromCommand(cmd))
	}

	return &cli.Command{
		Name:    "snakegame",
		Usage:   AppName,
		Version: Version,
		Flags:   globalFlags(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serve,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, optionsFromCommand(cmd))
				},
			},
		},
	}
}

// main loads .env, then hands over to the CLI.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand()
	cmd.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		logger := logging.Init(logging.Options{
			FilePath: cmd.String("log-file"),
			Debug:    cmd.Bool("debug"),
		})
		if envErr == nil {
			logger.Info("Loaded environment variables from .env file")
		} else if !os.IsNotExist(envErr) {
			logger.Warnw("error loading .env file", "error", envErr)
		}
		return ctx, nil
	}

	err := cmd.Run(ctx, os.Args)
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// app holds every long-lived component of one process
type app struct {
	opts     options
	log      *zap.SugaredLogger
	configs  *config.Manager
	sessions *session.Manager
	persist  session.SessionPersistence
	store    *scores.Store
	service  service.GameService
	hub      *websocket.Hub
	runner   *runner.Runner
	api      *api.Server
}

// initializeServices wires config, sessions, leaderboard, scheduler and transports.
func initializeServices(opts options) (*app, error) {
	log := logging.L()

	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	sessionManager.SetLogger(log.Named("session"))

	// Restored sessions come back paused
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warnw("failed to load persisted sessions", "error", err)
	}

	svcOpts := []service.Option{service.WithLogger(log.Named("service"))}

	var store *scores.Store
	if opts.ScoresDB != "" {
		store, err = scores.Open(opts.ScoresDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open leaderboard: %w", err)
		}
		svcOpts = append(svcOpts, service.WithScoreRecorder(store))
	} else {
		log.Info("leaderboard disabled")
	}

	gameService := service.NewGameService(sessionManager, configManager, svcOpts...)

	hub := websocket.NewHub()
	hub.SetLogger(log.Named("websocket"))

	run := runner.New(gameService, hub)
	run.SetLogger(log.Named("runner"))

	apiServer := api.NewServer(gameService, hub, run)
	apiServer.SetLogger(log.Named("api"))

	return &app{
		opts:     opts,
		log:      log,
		configs:  configManager,
		sessions: sessionManager,
		persist:  persistence,
		store:    store,
		service:  gameService,
		hub:      hub,
		runner:   run,
		api:      apiServer,
	}, nil
}

// start launches the hub and the background maintenance routines
func (a *app) start(ctx context.Context) {
	go a.hub.Run()
	go sessionCleanupRoutine(ctx, a.sessions, a.runner)
	go filesystemSyncRoutine(ctx, a.sessions, a.persist, a.runner)
	if cp, ok := a.service.(service.Checkpointer); ok {
		go sessionSaveRoutine(ctx, cp, sessionSavePeriod)
	}
}

// close stops the tick loops, then saves sessions and the leaderboard
func (a *app) close() {
	a.runner.StopAll()
	a.hub.Stop()

	if err := a.sessions.SaveAllSessions(); err != nil {
		a.log.Warnw("failed to save sessions on shutdown", "error", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warnw("failed to close leaderboard", "error", err)
		}
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRootHandler mounts the API at / and the MCP proxy at /mcp
func newRootHandler(a *app, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.api)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options) error {
	a, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	log := a.log

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.start(ctx)

	addr := opts.addr()
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newRootHandler(a, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infow("HTTP server listening", "addr", addr, "version", Version)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, handler, log)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	a.close()
	log.Info("Server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler, log *zap.SugaredLogger) {
	if opts.NgrokAuth == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Infow("Using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Errorw("Failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	log.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	// Closing the listener ends http.Serve
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warnw("Failed to close ngrok tunnel", "error", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warnw("Ngrok server error", "error", err)
	}
	log.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, run *runner.Runner) {
	ticker := time.NewTicker(sessionCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := manager.CleanupExpiredSessions(sessionMaxAge)
			if removed > 0 {
				logging.L().Infow("cleaned up expired sessions", "count", removed, "running_loops", run.Count())
			}
		}
	}
}

// sessionSaveRoutine checkpoints every live session each period. Ticks only
// touch memory, so this bounds what a crash can lose.
func sessionSaveRoutine(ctx context.Context, cp service.Checkpointer, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saved, err := cp.Checkpoint(ctx)
			if err != nil && ctx.Err() == nil {
				logging.L().Warnw("session checkpoint incomplete", "saved", saved, "error", err)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, run *runner.Runner) {
	if persistence == nil {
		return
	}

	ticker := time.NewTicker(filesystemSyncPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := 0
		for _, sess := range manager.List() {
			if persistence.Exists(sess.ID) {
				continue
			}
			run.Stop(sess.ID)
			if err := manager.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				logging.L().Infow("pruned session from memory (file deleted)", "session", sess.ID)
			}
		}

		if pruned > 0 {
			logging.L().Infow("filesystem sync pruned orphaned sessions", "count", pruned)
		}
	}
}

// externalServerAvailable reports whether an API server already answers at baseURL
func externalServerAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on host:port; otherwise it starts an internal one on a random
// loopback port.
func runStdioMCP(ctx context.Context, opts options) error {
	log := logging.L()
	externalURL := "http://" + opts.addr()
	baseURL := externalURL

	log.Infow("Checking for external API server", "url", externalURL)

	if externalServerAvailable(externalURL) {
		log.Infow("External API server found, using it for MCP", "url", externalURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		a, err := initializeServices(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		a.start(ctx)
		defer a.close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		log.Infow("Starting internal HTTP server for MCP stdio", "addr", internalAddr)

		httpServer := &http.Server{Handler: a.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warnw("Internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + internalAddr
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Infow("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
