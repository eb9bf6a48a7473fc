package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/dashboard"
	"github.com/jaakkos/helmpanel/internal/domain"
	"github.com/jaakkos/helmpanel/internal/policy"
	"github.com/jaakkos/helmpanel/internal/render"
	"github.com/jaakkos/helmpanel/internal/repository"
	"github.com/jaakkos/helmpanel/internal/tools/panel"
	"github.com/jaakkos/helmpanel/internal/transport/phoenix"
)

const shutdownTimeout = 5 * time.Second

// runtime is one connected subsystem view and everything it owns.
type runtime struct {
	policy  *policy.Policy
	logger  *log.Logger
	store   app.ViewStore
	socket  *phoenix.Socket
	channel *phoenix.Channel
	panel   *app.Panel
}

// resolveConfigPath returns the --config value, or HELMPANEL_CONFIG.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("HELMPANEL_CONFIG")
}

// loadConfig loads path, or the defaults when path is empty.
func loadConfig(path string) (*policy.Config, error) {
	if path == "" {
		return policy.DefaultConfig(), nil
	}
	cfg, err := policy.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// start connects to the endpoint, joins the subsystem topic and activates
// the panel on renderer. When configPath is set the layout is reloaded on
// every edit of that file.
func start(ctx context.Context, cfg *policy.Config, configPath string, renderer app.Renderer) (*runtime, error) {
	pol := policy.New(cfg)
	logger := setupLogger(pol.LogFile())
	logger.Printf("Starting helmpanel %s (subsystem=%s)", Version, pol.Subsystem())
	if configPath != "" {
		logger.Printf("Config: %s", configPath)
	}

	store, err := repository.NewViewStore(pol.SessionFile(), pol.SessionID())
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	sock, err := phoenix.Dial(ctx, pol.Endpoint(), pol.SocketParams(), logger, phoenix.WithHeartbeat(pol.HeartbeatInterval()))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	ch := sock.Channel(pol.Topic(), nil)

	p := app.NewPanel(ch, store, renderer, pol, logger)
	ch.On(app.EventBroadcast, p.HandleBroadcast)

	if reply := ch.Join(ctx, pol.CommandTimeout()); reply.Tag != domain.TagOK {
		_ = sock.Close()
		_ = store.Close()
		if reply.Err != nil {
			return nil, fmt.Errorf("join %s: %w", pol.Topic(), reply.Err)
		}
		return nil, fmt.Errorf("join %s: %s %s", pol.Topic(), reply.Tag, reply.Payload)
	}
	logger.Printf("Joined %s at %s", pol.Topic(), pol.Endpoint())

	// The loop outlives ctx so close can still deactivate the view.
	go p.Run(context.Background())

	rt := &runtime{policy: pol, logger: logger, store: store, socket: sock, channel: ch, panel: p}
	if err := p.PageLoaded(ctx, pol.Subsystem()); err != nil {
		rt.close()
		return nil, fmt.Errorf("activate %s: %w", pol.Subsystem(), err)
	}

	if configPath != "" {
		watcher := app.NewLayoutWatcher(configPath, func() error {
			if err := pol.ReloadLayout(configPath); err != nil {
				return err
			}
			return p.ReloadLayout(ctx)
		}, logger)
		go watcher.Start(ctx)
	}
	return rt, nil
}

// close deactivates the view, stops the loop and releases the connection
// and the session store.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := rt.panel.Deactivate(ctx); err != nil {
		rt.logger.Printf("Warning: deactivate: %v", err)
	}
	rt.panel.Stop()

	if rt.channel.Joined() {
		rt.channel.Leave(ctx, rt.policy.CommandTimeout())
	}
	if err := rt.socket.Close(); err != nil {
		rt.logger.Printf("Warning: %v", err)
	}
	if err := rt.store.Close(); err != nil {
		rt.logger.Printf("Warning: close session store: %v", err)
	}
	rt.logger.Println("Stopped")
}

// newMCPServer builds the MCP server with the panel tools.
func newMCPServer(rt *runtime, board *render.Board) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			rt.logger.Printf("Calling tool: %s", message.Params.Name)
		}
	})
	s := server.NewMCPServer(
		"helmpanel",
		Version,
		server.WithInstructions(panel.InstructionsText()),
		server.WithHooks(hooks),
	)
	panel.Register(s, rt.panel, board, rt.logger)
	return s
}

// serveHTTP starts the dashboard when http_port is set, with the
// streamable MCP endpoint at /mcp when mcpServer is non-nil. Returns a
// shutdown function; a no-op when the dashboard is disabled.
func (rt *runtime) serveHTTP(board *render.Board, mcpServer *server.MCPServer) func() {
	port := rt.policy.HTTPPort()
	if port <= 0 {
		return func() {}
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		rt.logger.Printf("Warning: dashboard disabled: %v", err)
		return func() {}
	}
	baseURL := fmt.Sprintf("http://localhost:%d", ln.Addr().(*net.TCPAddr).Port)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		st := rt.panel.Status()
		fmt.Fprintf(w, `{"status":"ok","subsystem":%q,"active":%t}`, st.Subsystem, st.Active)
	})
	dashboard.NewHandler(rt.panel, board, dashboard.WithClickTimeout(rt.policy.CommandTimeout())).RegisterRoutes(mux)
	logger := rt.logger
	logger.Printf("Dashboard: %s/dashboard", baseURL)
	if mcpServer != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
		logger.Printf("MCP over HTTP: %s/mcp", baseURL)
	}

	httpServer := &http.Server{Handler: mux}
	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}
}

// setupLogger creates a logger that writes to a log file and, when stderr
// is a terminal or no file could be opened, to stderr.
func setupLogger(logFilePath string) *log.Logger {
	var writers []io.Writer

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "[helmpanel] Warning: cannot open log file %s: %v\n", logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[helmpanel] Warning: cannot create log dir %s: %v\n", filepath.Dir(logFilePath), err)
		}
	}

	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) || !hasLogFile {
		writers = append(writers, os.Stderr)
	}

	return log.New(io.MultiWriter(writers...), "[helmpanel] ", log.LstdFlags|log.Lshortfile)
}
