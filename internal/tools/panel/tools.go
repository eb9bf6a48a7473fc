package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/render"
)

// registerPanelView registers the panel_view tool.
func registerPanelView(s *server.MCPServer, p Controller, board BoardReader, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("panel_view",
			mcp.WithDescription("Show the panel as currently rendered: every worker with its modes (active, finished, ready, disabled), sub-workers, all-stop light, and the panel flags (lock, manual control, live update)."),
			mcp.WithString("format", mcp.Description("Output format (default: text)"), mcp.Enum("text", "json")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			format := optionalString(args, "format", "text")

			st := p.Status()
			v := board.View()
			if format == "json" {
				data, err := json.MarshalIndent(struct {
					app.Status
					Board render.View `json:"board"`
				}{st, v}, "", "  ")
				if err != nil {
					return nil, fmt.Errorf("encode view: %w", err)
				}
				return mcp.NewToolResultText(string(data)), nil
			}

			var b strings.Builder
			if !st.Active {
				fmt.Fprintf(&b, "Panel %s is not active (page not loaded).\n\n", st.Subsystem)
			}
			if st.LockPending {
				b.WriteString("Lock requested, waiting for the server to confirm.\n\n")
			}
			b.WriteString(render.Frame(st.Subsystem, v))
			return mcp.NewToolResultText(b.String()), nil
		},
	)
}

// registerPanelControls registers the panel_controls tool.
func registerPanelControls(s *server.MCPServer, p Controller, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("panel_controls",
			mcp.WithDescription("List every control id of the panel. Ids are '<worker>/mode/<mode>', '<worker>/device/<name>', '<worker>/subworker/<name>', '<worker>/action/<action>' and 'panel/action/<action>'."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			st := p.Status()
			if len(st.Controls) == 0 {
				return mcp.NewToolResultText("No controls: the layout is empty."), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("=== %s controls (%d) ===\n%s",
				st.Subsystem, len(st.Controls), strings.Join(st.Controls, "\n"))), nil
		},
	)
}

// registerPanelClick registers the panel_click tool.
func registerPanelClick(s *server.MCPServer, p Controller, board BoardReader, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("panel_click",
			mcp.WithDescription("Strike a panel control, as an operator clicking it. Unlocking modes and toggling flags act locally; everything else is sent to the server, whose answer shows up in panel_view."),
			mcp.WithString("target", mcp.Required(), mcp.Description("Control id from panel_controls (a nested element id such as 'captain/mode/fill/icon' resolves to its control)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			target, err := requireString(args, "target")
			if err != nil {
				return nil, err
			}

			outcome, err := p.Interact(ctx, target)
			switch {
			case errors.Is(err, app.ErrUnknownControl):
				return mcp.NewToolResultError(fmt.Sprintf("%v (see panel_controls)", err)), nil
			case err != nil:
				return nil, fmt.Errorf("panel_click %s: %w", target, err)
			}
			logger.Printf("MCP: panel_click %s -> %s", target, outcome)

			var msg string
			switch outcome {
			case app.OutcomeSent:
				msg = fmt.Sprintf("Sent %s. The reply will update the board.", target)
			case app.OutcomeLocal:
				msg = fmt.Sprintf("Applied %s locally.", target)
			default:
				msg = fmt.Sprintf("Ignored %s: turn manual control on first.", target)
			}
			return mcp.NewToolResultText(msg + "\n\n" + render.Frame(p.Status().Subsystem, board.View())), nil
		},
	)
}
