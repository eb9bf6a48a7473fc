// Package panel exposes the subsystem panel to MCP clients: reading the
// rendered board, listing controls and striking them.
package panel

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/render"
)

// Controller is implemented by app.Panel.
type Controller interface {
	Status() app.Status
	Interact(ctx context.Context, target string) (app.Outcome, error)
}

// BoardReader is implemented by render.Board.
type BoardReader interface {
	View() render.View
}

// Register adds the panel tools to the mcp-go server.
func Register(s *server.MCPServer, p Controller, board BoardReader, logger *log.Logger) {
	registerPanelView(s, p, board, logger)
	registerPanelControls(s, p, logger)
	registerPanelClick(s, p, board, logger)
}

// InstructionsText is sent to clients during initialization.
func InstructionsText() string {
	return `You are operating a subsystem control panel.

1. panel_view                  -- current board: workers, modes, sub-workers, panel flags
2. panel_controls              -- every control id you can strike
3. panel_click target='<id>'   -- strike a control (e.g. 'captain/mode/fill')

Modes start locked; strike '<worker>/action/unlock-modes' to reveal them.
Device and sub-worker controls need '<worker>/action/manual-control' on first.
The server answers asynchronously: call panel_view again to see the effect.`
}
