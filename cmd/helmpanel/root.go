package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/policy"
	"github.com/jaakkos/helmpanel/internal/render"
)

// NewRoot builds the helmpanel command tree.
func NewRoot() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "helmpanel",
		Short:        "Subsystem control panel over a Phoenix channel",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML or TOML); defaults to $HELMPANEL_CONFIG")
	root.AddCommand(
		watchCmd(&configPath),
		mcpCmd(&configPath),
		controlsCmd(&configPath),
		versionCmd(),
	)
	return root
}

func watchCmd(configPath *string) *cobra.Command {
	var port int
	var noClear bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join the subsystem and draw the panel in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(*configPath)
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			redraw := !noClear
			if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
				redraw = false
			}
			terminal := render.NewTerminal(out, render.NewBoard(), cfg.Subsystem, render.WithClearScreen(redraw))

			rt, err := start(ctx, cfg, path, terminal)
			if err != nil {
				return err
			}
			defer rt.close()

			httpShutdown := rt.serveHTTP(terminal.Board(), nil)
			defer httpShutdown()

			select {
			case <-ctx.Done():
			case <-rt.socket.Done():
				rt.logger.Println("Connection closed by server")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Dashboard port (overrides http_port; 0 disables)")
	cmd.Flags().BoolVar(&noClear, "no-clear", false, "Append frames instead of redrawing the screen")
	return cmd
}

func mcpCmd(configPath *string) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the panel to an MCP client over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(*configPath)
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			board := render.NewBoard()
			rt, err := start(ctx, cfg, path, board)
			if err != nil {
				return err
			}
			defer rt.close()

			mcpServer := newMCPServer(rt, board)
			httpShutdown := rt.serveHTTP(board, mcpServer)
			defer httpShutdown()

			go func() {
				<-rt.socket.Done()
				rt.logger.Println("Connection closed by server")
				cancel()
			}()

			rt.logger.Println("Stdio ready")
			stdioSrv := server.NewStdioServer(mcpServer)
			if err := stdioSrv.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
				rt.logger.Printf("Stdio server stopped: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Dashboard and streamable MCP port (overrides http_port; 0 disables)")
	return cmd
}

func controlsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "controls",
		Short: "List the control ids of the configured layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(resolveConfigPath(*configPath))
			if err != nil {
				return err
			}
			pol := policy.New(cfg)
			for _, id := range app.NewDispatcher(pol.Layout()).Controls() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "helmpanel "+Version)
			return nil
		},
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
