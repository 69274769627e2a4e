// Command game2048 serves the 2048 game.
//
// Commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is reachable
//  3. "play" plays a local game in the terminal
//
// Every flag can also be set through the environment or a .env file, and the
// server can optionally be exposed through an ngrok tunnel.
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

	"github.com/wricardo/mcp-training/game2048/api"
	"github.com/wricardo/mcp-training/game2048/game/config"
	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/scores"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/game/session"
	"github.com/wricardo/mcp-training/game2048/logging"
	"github.com/wricardo/mcp-training/game2048/transport/mcp"
	"github.com/wricardo/mcp-training/game2048/transport/websocket"
	"github.com/wricardo/mcp-training/game2048/tui"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "2048 Game Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

// options is the resolved command line and environment configuration
type options struct {
	Host          string
	Port          int
	ConfigDir     string
	DefaultConfig string
	SessionsDir   string
	ScoresDSN     string
	LogFile       string
	LogLevel      string

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		ConfigDir:     cmd.String("config-dir"),
		DefaultConfig: cmd.String("default-config"),
		SessionsDir:   cmd.String("sessions-dir"),
		ScoresDSN:     cmd.String("scores-dsn"),
		LogFile:       cmd.String("log-file"),
		LogLevel:      cmd.String("log-level"),
		NgrokEnabled:  cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}
}

// newRootCommand builds the command tree. Flags live on the root and are visible to every subcommand.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "game2048",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "default-config", Usage: "Config used when a session names none (default classic)", Sources: cli.EnvVars("DEFAULT_CONFIG")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "scores-dsn", Value: "memory:", Usage: "High score store: memory:, sqlite:<path> or postgres://...", Sources: cli.EnvVars("SCORES_DSN")},
			&cli.StringFlag{Name: "log-file", Usage: "Also write JSON logs to this rolling file", Sources: cli.EnvVars("LOG_FILE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, reusing a running HTTP server when one answers",
				Action:  mcpAction,
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "classic", Usage: "Config to play"},
				},
				Action: playAction,
			},
		},
	}
}

// main loads .env, then runs the selected command until it returns or a signal arrives.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything the commands share
type app struct {
	configs     *config.Manager
	sessions    *session.Manager
	persistence *session.FilePersistence
	store       scores.Store
	service     service.GameService
	log         *zap.SugaredLogger
}

func (a *app) Close() {
	if err := a.service.SaveAll(context.Background()); err != nil {
		a.log.Warnw("saving sessions on shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warnw("closing score store", "error", err)
	}
	a.log.Sync()
}

func newLogger(opts options, console io.Writer) (*zap.SugaredLogger, error) {
	logger, err := logging.New(logging.Options{
		Level:   opts.LogLevel,
		File:    opts.LogFile,
		Console: console,
	})
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// initializeServices wires config, session, and score stores into the game service
func initializeServices(ctx context.Context, opts options, log *zap.SugaredLogger) (*app, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if opts.DefaultConfig != "" {
		if err := configManager.SetDefault(opts.DefaultConfig); err != nil {
			return nil, fmt.Errorf("failed to set default config %q: %w", opts.DefaultConfig, err)
		}
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, log.Named("sessions"))
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warnw("failed to load persisted sessions", "error", err)
	}

	store, err := scores.Open(ctx, opts.ScoresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open score store: %w", err)
	}

	return &app{
		configs:     configManager,
		sessions:    sessionManager,
		persistence: persistence,
		store:       store,
		service:     service.NewGameService(sessionManager, configManager, store, log.Named("service")),
		log:         log,
	}, nil
}

// newHandler mounts the API at the root and the MCP JSON-RPC endpoint at /mcp
func newHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})

	return mainRouter
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log, err := newLogger(opts, nil)
	if err != nil {
		return err
	}

	a, err := initializeServices(ctx, opts, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Infow("starting", "app", AppName, "version", Version, "mode", "server")
	return runHTTPServer(ctx, a, opts)
}

// runHTTPServer serves the API until ctx is cancelled. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, a *app, opts options) error {
	log := a.log
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	addr := opts.addr()
	apiServer := api.NewServer(a.service, hub, log.Named("api"))
	handler := newHandler(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infow("HTTP server listening",
			"addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, a.sessions, log)
	}()
	go func() {
		defer wg.Done()
		filesystemSyncRoutine(ctx, a.sessions, a.persistence, a.configs, log)
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, handler, log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Infow("shutting down")
	case runErr = <-errCh:
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	log.Infow("server stopped")
	return runErr
}

func runNgrok(ctx context.Context, opts options, handler http.Handler, log *zap.SugaredLogger) {
	if opts.NgrokAuth == "" {
		log.Warnw("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Infow("using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Errorw("failed to start ngrok tunnel", "error", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Warnw("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infow("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"mcp", ngrokURL+"/mcp",
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warnw("ngrok server error", "error", err)
	}
	log.Infow("ngrok tunnel closed")
}

// sessionCleanupRoutine drops sessions that have not been touched for a day.
// They stay on disk and load again on demand.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, log *zap.SugaredLogger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Infow("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory once their files are deleted
// and drops cached configs so edits in the config directory apply to new sessions
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, configs *config.Manager, log *zap.SugaredLogger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphans(manager, persistence, log); pruned > 0 {
				log.Infow("filesystem sync pruned orphaned sessions", "count", pruned)
			}
			configs.RefreshCache()
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence, log *zap.SugaredLogger) int {
	if persistence == nil {
		return 0
	}
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Debugw("pruned session from memory", "session", s.ID)
		}
	}
	return pruned
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	// stdout carries the protocol, so logs stay on stderr
	log, err := newLogger(opts, os.Stderr)
	if err != nil {
		return err
	}

	a, err := initializeServices(ctx, opts, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return runStdioMCP(ctx, a, opts)
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening on the
// configured address; otherwise it starts an internal one on a random loopback port.
func runStdioMCP(ctx context.Context, a *app, opts options) error {
	log := a.log
	externalURL := "http://" + opts.addr()

	baseURL := externalURL
	if !apiReachable(externalURL) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(log.Named("ws"))
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(a.service, hub, log.Named("api"))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Infow("started internal HTTP server for MCP stdio", "url", baseURL)
	} else {
		log.Infow("using external API server for MCP stdio", "url", externalURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	// the terminal belongs to the game, so only the log file (if any) gets output
	log, err := newLogger(opts, io.Discard)
	if err != nil {
		return err
	}
	defer log.Sync()

	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	configID := cmd.String("config")
	cfg, err := configManager.LoadConfig(configID)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(cfg, nil)
	if err != nil {
		return err
	}

	store, err := scores.Open(ctx, opts.ScoresDSN)
	if err != nil {
		return fmt.Errorf("failed to open score store: %w", err)
	}
	defer store.Close()

	return tui.Run(eng, configID, store, log.Named("tui"))
}
