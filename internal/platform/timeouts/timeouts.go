// Package timeouts defines shared timeout constants used across the tools.
package timeouts

import "time"

// TelemetryShutdown caps how long a tool waits for pending spans on exit.
const TelemetryShutdown = 5 * time.Second

// Import caps a whole catalog import run.
const Import = 10 * time.Minute

// MCPTool caps a single MCP tool invocation.
const MCPTool = 2 * time.Minute
