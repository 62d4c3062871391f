// Package tcpserver implements the line-oriented client protocol: a
// fixed pool of workers, each multiplexing up to a configured number of
// connections and driving a small per-connection state machine.
package tcpserver

import "strings"

// Protocol text. These strings are a wire contract; clients scrape them.
const (
	banner = "GridGuard LEOP Server\n" +
		"Commands: forecast [location] [region]\n" +
		"Example: forecast stockholm SE3\n" +
		"\n> "

	helpText = "Available commands:\n" +
		"  forecast [location] [region] - Get energy forecast\n" +
		"  help                         - Show this help\n" +
		"\n> "

	unknownCommandNotice = "Unknown command. Type 'help' for available commands\n> "
	queueFullNotice      = "ERROR: Pipeline queue full, try again later\n> "
	processingAck        = "Processing request...\n"
)

const (
	defaultLocation = "stockholm"
	defaultRegion   = "SE3"
)

// connState is the per-connection FSM state. A zero-valued slot is
// DISCONNECTED, which doubles as the free-slot marker.
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateReady
	stateProcessing
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "DISCONNECTED"
	case stateConnected:
		return "CONNECTED"
	case stateReady:
		return "READY"
	case stateProcessing:
		return "PROCESSING"
	}
	return "UNKNOWN"
}

// parseCommand extracts up to three whitespace-delimited tokens from a
// client line, defaulting location and region when absent.
func parseCommand(line string) (cmd, location, region string) {
	location, region = defaultLocation, defaultRegion
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", location, region
	}
	cmd = fields[0]
	if len(fields) > 1 {
		location = fields[1]
	}
	if len(fields) > 2 {
		region = fields[2]
	}
	return cmd, location, region
}
