// Package cli implements the flowscope command-line interface.
//
// Every command reads one pcap or pcapng capture, aggregates it into a host
// graph or a port graph and hands it to the pipeline or a live session.
// The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - aggregate: write the flow graph as JSON
//   - layout: run the force simulation to rest and write positions as JSON
//   - render: draw the settled layout as SVG, PNG or JSON
//   - watch: interactive terminal view of the running simulation
//   - serve: HTTP API over the capture
//   - cache: inspect or clear the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Settings come
// from the file named by --config, or the built-in defaults.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Loaded 1200 packets from trace.pcap (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
