// Command lunar-lander runs the lunar lander physics server.
//
// It provides three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket feeds,
//     Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "simulate" flies one headless autopilot descent and optionally writes telemetry as CSV
//
// Flags control host/port, config directory, logging, rate limiting and optional
// ngrok tunneling for easy external access during development. Every serve flag
// can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/lunar-lander/api"
	"github.com/wricardo/lunar-lander/game/config"
	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/service"
	"github.com/wricardo/lunar-lander/game/session"
	"github.com/wricardo/lunar-lander/game/telemetry"
	"github.com/wricardo/lunar-lander/metrics"
	"github.com/wricardo/lunar-lander/transport/mcp"
	"github.com/wricardo/lunar-lander/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Lunar Lander Server"
)

// main loads .env, then hands the arguments to the command tree.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "lunar-lander",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("LANDER_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format: text or json",
				Sources: cli.EnvVars("LANDER_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing physics profiles",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(os.Stderr, cmd.Bool("debug"), cmd.String("log-format"))
			return ctx, nil
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			simulateCommand(),
		},
	}
}

// setupLogging installs the process-wide slog handler. Logs always go to w so
// stdout stays free for the MCP stdio protocol and simulate output.
func setupLogging(w io.Writer, debug bool, format string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: debug}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "Run the HTTP server with REST API, WebSocket, metrics and MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("LANDER_HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("LANDER_PORT")},
			&cli.StringSliceFlag{Name: "cors-origin", Usage: "Allowed CORS origin (repeatable, defaults to localhost)", Sources: cli.EnvVars("LANDER_CORS_ORIGINS")},
			&cli.FloatFlag{Name: "rate-limit", Value: api.DefaultRateLimitConfig.RequestsPerSecond, Usage: "Requests per second allowed per client IP, 0 disables", Sources: cli.EnvVars("LANDER_RATE_LIMIT")},
			&cli.IntFlag{Name: "rate-burst", Value: api.DefaultRateLimitConfig.Burst, Usage: "Burst size per client IP", Sources: cli.EnvVars("LANDER_RATE_BURST")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Remove sessions idle for longer than this", Sources: cli.EnvVars("LANDER_SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run an MCP stdio server backed by an external or internal HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "API server to reuse when reachable", Sources: cli.EnvVars("LANDER_API_URL")},
		},
		Action: runStdioMCP,
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Fly one headless autopilot descent and print the outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.BuiltinName, Usage: "Physics profile to fly"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Random seed for the initial drift"},
			&cli.IntFlag{Name: "max-ticks", Value: 6000, Usage: "Give up after this many ticks"},
			&cli.StringFlag{Name: "csv", Usage: "Write per-tick telemetry to this file, - for stdout"},
		},
		Action: runSimulate,
	}
}

// buildServer wires the game service, WebSocket hub and API server. Snapshots and
// flight outcomes are pushed to WebSocket clients and counted in Prometheus.
func buildServer(cmd *cli.Command) (*api.Server, *websocket.Hub, *session.Manager, error) {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	hub := websocket.NewHub(nil)

	hooks := metrics.Hooks(service.Hooks{
		OnSnapshot: hub.BroadcastSnapshot,
		OnFlightEnded: func(sessionID string, record engine.FlightRecord) {
			hub.BroadcastEvent(sessionID, string(record.Phase), record)
		},
	})
	gameService := service.NewGameServiceWithHooks(sessionManager, configManager, hooks)
	hub.SetInputHandler(gameService)

	opts := api.Options{CORSOrigins: cmd.StringSlice("cors-origin")}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = nil
	}
	if rps := cmd.Float("rate-limit"); rps > 0 {
		rl := api.DefaultRateLimitConfig
		rl.RequestsPerSecond = rps
		rl.Burst = int(cmd.Int("rate-burst"))
		opts.RateLimit = &rl
	}

	return api.NewServerWithOptions(gameService, hub, opts), hub, sessionManager, nil
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("failed to write MCP response", "error", err)
		}
	}
}

// runServe starts the HTTP server and, if enabled, an ngrok tunnel. It blocks
// until ctx is cancelled, then shuts everything down.
func runServe(ctx context.Context, cmd *cli.Command) error {
	apiServer, hub, sessionManager, err := buildServer(cmd)
	if err != nil {
		return err
	}
	defer apiServer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go hub.Run(ctx)
	go sessionCleanupRoutine(ctx, sessionManager, cmd.Duration("session-ttl"))

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient("http://"+addr)))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		slog.Info("HTTP server listening", "addr", addr, "version", Version)
		slog.Info("endpoints",
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?session=<session_id>",
			"metrics", "http://"+addr+"/metrics",
			"mcp", "http://"+addr+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case serveErr = <-errCh:
	}
	cancel()
	sessionManager.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("server stopped")
	return serveErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		slog.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		slog.Error("failed to start ngrok tunnel", "error", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			slog.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	slog.Info("ngrok tunnel established", "url", tun.URL())

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		slog.Error("ngrok server error", "error", err)
	}
}

// sessionCleanupRoutine periodically removes idle sessions and refreshes the
// active sessions gauge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ttl > 0 {
				if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
					slog.Info("cleaned up expired sessions", "count", removed)
				}
			}
			metrics.SetActiveSessions(manager.Count())
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when it
// answers; otherwise it starts an internal API bound to a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := strings.TrimSuffix(cmd.String("api-url"), "/")

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(baseURL + "/healthz")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		slog.Info("using external API server for MCP", "url", baseURL)
	} else {
		if err == nil {
			resp.Body.Close()
		}
		slog.Info("no external API server found, starting internal HTTP server")

		apiServer, hub, sessionManager, err := buildServer(cmd)
		if err != nil {
			return err
		}
		defer apiServer.Close()
		defer sessionManager.StopAll()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				slog.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		slog.Info("internal HTTP server started", "url", baseURL)
	}

	slog.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// loadProfile resolves a profile from the config directory, falling back to the
// built-in classic profile when the directory does not exist
func loadProfile(configDir, name string) (*engine.GameConfig, error) {
	manager, err := config.NewManager(configDir)
	if err != nil {
		if name == config.BuiltinName {
			return engine.DefaultGameConfig(), nil
		}
		return nil, err
	}
	return manager.LoadConfig(name)
}

// runSimulate flies one autopilot descent, printing the outcome and optionally
// streaming telemetry
func runSimulate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadProfile(cmd.String("config-dir"), cmd.String("config"))
	if err != nil {
		return err
	}

	seed := uint64(cmd.Int("seed"))
	e, err := engine.NewEngineWithRand(cfg, engine.NewRand(seed))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	var csvOut *telemetry.CSVWriter
	switch path := cmd.String("csv"); path {
	case "":
	case "-":
		csvOut = telemetry.NewCSVWriter(out)
	default:
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating telemetry file: %w", err)
		}
		defer f.Close()
		csvOut = telemetry.NewCSVWriter(f)
	}

	recorder := telemetry.NewRecorder(engine.MaxTelemetryFrames)
	recorder.Record(e.GetState())

	pilot := engine.NewAutopilot(cfg.Physics)
	maxTicks := int(cmd.Int("max-ticks"))
	for i := 0; i < maxTicks && !e.IsTerminal(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Tick(pilot.Commands(e.GetState(), e))
		recorder.Record(e.GetState())
	}

	if csvOut != nil {
		if err := csvOut.Write(recorder.Frames()...); err != nil {
			return err
		}
		if cmd.String("csv") == "-" {
			return nil
		}
	}

	last := e.GetLastFlight()
	if last == nil {
		fmt.Fprintf(out, "%s (seed %d): still flying after %d ticks\n", cfg.Name, seed, e.GetState().Tick)
		return nil
	}

	td := last.Touchdown
	fmt.Fprintf(out, "%s (seed %d): %s after %d ticks (vy %.3f, vx %.3f, angle %.1f°, thrust %d ticks)\n",
		cfg.Name, seed, last.Phase, last.Ticks, td.VelocityY, td.VelocityX, td.NormalizedAngle, last.ThrustTicks)
	if len(td.Failed) > 0 {
		fmt.Fprintf(out, "failed: %s\n", strings.Join(td.Failed, ", "))
	}

	stats := recorder.Summary()
	fmt.Fprintf(out, "frames %d | mean speed %.3f | max speed %.3f | thrust ratio %.2f\n",
		stats.Frames, stats.MeanSpeed, stats.MaxSpeed, stats.ThrustRatio)
	return nil
}
