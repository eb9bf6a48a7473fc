package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// Color palette (Tokyo Night inspired)
var (
	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSecondary = lipgloss.Color("#bb9af7")
	colorSuccess   = lipgloss.Color("#9ece6a")
	colorWarning   = lipgloss.Color("#e0af68")
	colorError     = lipgloss.Color("#f7768e")
	colorMuted     = lipgloss.Color("#565f89")
	colorFg        = lipgloss.Color("#c0caf5")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	onStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	modeStyles = map[domain.ModePresentation]lipgloss.Style{
		domain.PresentActive:   lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		domain.PresentFinished: lipgloss.NewStyle().Foreground(colorSecondary),
		domain.PresentReady:    lipgloss.NewStyle().Foreground(colorFg),
		domain.PresentDisabled: lipgloss.NewStyle().Foreground(colorMuted),
	}

	entryStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Underline(true)

	subWorkerStyles = map[domain.SubWorkerState]lipgloss.Style{
		domain.SubWorkerActive:  lipgloss.NewStyle().Foreground(colorSuccess),
		domain.SubWorkerIdle:    lipgloss.NewStyle().Foreground(colorWarning),
		domain.SubWorkerOffline: lipgloss.NewStyle().Foreground(colorError),
	}

	stopStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

var modeGlyphs = map[domain.ModePresentation]string{
	domain.PresentActive:   "▶",
	domain.PresentFinished: "✓",
	domain.PresentReady:    "○",
	domain.PresentDisabled: "·",
}

const clearScreen = "\x1b[H\x1b[2J"

// Terminal draws the board to a writer after every batch of directives.
type Terminal struct {
	board *Board
	title string
	clear bool

	mu  sync.Mutex
	out io.Writer
}

// TerminalOption configures the terminal renderer.
type TerminalOption func(*Terminal)

// WithClearScreen clears the screen before each frame.
func WithClearScreen(on bool) TerminalOption {
	return func(t *Terminal) { t.clear = on }
}

// NewTerminal creates a terminal renderer drawing board under title.
func NewTerminal(out io.Writer, board *Board, title string, opts ...TerminalOption) *Terminal {
	t := &Terminal{board: board, title: title, out: out}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Board returns the model the terminal draws.
func (t *Terminal) Board() *Board {
	return t.board
}

// Apply implements app.Renderer.
func (t *Terminal) Apply(directives []domain.Directive) {
	if len(directives) == 0 {
		return
	}
	t.board.Apply(directives)
	t.draw()
}

// Reset implements app.Renderer.
func (t *Terminal) Reset() {
	t.board.Reset()
}

func (t *Terminal) draw() {
	frame := Frame(t.title, t.board.View())
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clear {
		fmt.Fprint(t.out, clearScreen)
	}
	fmt.Fprintln(t.out, frame)
}

// Frame renders a board view as styled text.
func Frame(title string, v View) string {
	lines := []string{titleStyle.Render(title), panelLine(v.Panel)}
	if len(v.Workers) == 0 {
		lines = append(lines, labelStyle.Render("waiting for status..."))
	}
	for _, w := range v.Workers {
		lines = append(lines, "", workerBlock(w))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func panelLine(p PanelView) string {
	lock := "locked"
	if p.LockOpen {
		lock = "unlocked"
	}
	live := flag(p.LiveUpdate)
	if !p.LiveEnabled {
		live += labelStyle.Render(" (disabled)")
	}
	parts := []string{
		labelStyle.Render("modes ") + lock,
		labelStyle.Render("manual ") + flag(p.ManualControl),
		labelStyle.Render("live ") + live,
	}
	if p.LiveUpdate && p.Pulses > 0 {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("pulse #%d", p.Pulses)))
	}
	if p.LastAck != "" {
		parts = append(parts, labelStyle.Render("ack ")+p.LastAck)
	}
	return strings.Join(parts, "  ")
}

func workerBlock(w WorkerView) string {
	head := titleStyle.Render(w.Name)
	if !w.Ready {
		head += labelStyle.Render(" (not ready)")
	}
	if w.StopLit {
		head += "  " + stopStyle.Render("■ ALL STOP")
	}

	modes := make([]string, 0, len(w.Modes))
	for _, m := range w.Modes {
		modes = append(modes, modeCell(m))
	}
	lines := []string{head, "  " + strings.Join(modes, "  ")}

	if len(w.SubWorkers) > 0 {
		subs := make([]string, 0, len(w.SubWorkers))
		for _, s := range w.SubWorkers {
			subs = append(subs, s.Name+" "+subWorkerStyles[s.State].Render(string(s.State)))
		}
		lines = append(lines, "  "+strings.Join(subs, "  "))
	}
	return strings.Join(lines, "\n")
}

func modeCell(m ModeCell) string {
	text := modeGlyphs[m.State] + " " + m.Name
	if m.Completed && m.Disabled {
		return modeStyles[domain.PresentDisabled].Render(text)
	}
	if m.Entry {
		return entryStyle.Render(text)
	}
	return modeStyles[m.State].Render(text)
}

func flag(on bool) string {
	if on {
		return onStyle.Render("on")
	}
	return "off"
}
