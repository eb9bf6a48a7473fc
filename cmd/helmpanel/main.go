// helmpanel is a subsystem control panel client.
// It joins the subsystem's channel, renders the board in the terminal and
// exposes it over a local dashboard and MCP.
package main

import "os"

// Version is set by -ldflags at build time.
var Version = "dev"

func main() {
	if err := NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
