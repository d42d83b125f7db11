package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/buildinfo"
	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/config"
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/packet"
	"github.com/matzehuels/flowscope/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flowscope"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowscope draws the conversations inside a packet capture",
		Long:         `Flowscope aggregates a pcap/pcapng capture into a host graph or a port graph and lays it out with a force-directed simulation, as a static image, over HTTP or live in the terminal.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")

	root.AddCommand(c.aggregateCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if c.configPath != "" {
		c.Logger.Debug("loaded config", "path", c.configPath, "cache", cfg.Cache.Backend)
	}
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}

	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if c.Config.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Config.Cache.Prefix)
	}

	r := pipeline.NewRunner(store, keyer, c.Logger)
	if ttl := c.Config.Cache.TTLDuration(); ttl > 0 {
		r.TTL = ttl
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	settings := c.Config.Cache.Settings()
	if settings.Backend == "" || settings.Backend == cache.BackendFile {
		dir, err := c.cacheDir()
		if err != nil {
			c.Logger.Warn("cache disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		settings.Dir = dir
	}
	return cache.Open(ctx, settings)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the per-user one
// (~/.cache/flowscope/ on Linux).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// flowFlags are the flags shared by every command that reads a capture.
type flowFlags struct {
	mode    string
	from    string
	to      string
	noCache bool
	refresh bool
}

func (f *flowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(flow.ModeHost), "grouping: host or port")
	cmd.Flags().StringVar(&f.from, "from", "", "ignore packets before this RFC 3339 time")
	cmd.Flags().StringVar(&f.to, "to", "", "ignore packets after this RFC 3339 time")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute and overwrite cached results")
}

// options converts the shared flags and config into pipeline options.
func (c *CLI) options(input string, f flowFlags) (pipeline.Options, error) {
	mode, err := flow.ParseMode(f.mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	from, err := parseTime("--from", f.from)
	if err != nil {
		return pipeline.Options{}, err
	}
	to, err := parseTime("--to", f.to)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Input:    input,
		From:     from,
		To:       to,
		Mode:     mode,
		Params:   c.Config.Layout.Params(),
		MaxTicks: c.Config.Layout.MaxTicks,
		Refresh:  f.refresh,
		Logger:   c.Logger,
	}, nil
}

// parseTime parses an RFC 3339 flag value. Empty means unbounded.
func parseTime(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "%s must be an RFC 3339 time", flag)
	}
	return t, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// outputPath returns the file for one artifact. Without -o the path is
// derived from the input; with several formats -o is used as a base path.
func outputPath(output, input string, mode flow.Mode, format string, multi bool) string {
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		return fmt.Sprintf("%s.%s.%s", base, mode, format)
	}
	if multi {
		return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format
	}
	return output
}

// load decodes the capture named in opts.
func (c *CLI) load(opts pipeline.Options) ([]packet.Record, int, error) {
	prog := newProgress(c.Logger)
	records, skipped, err := pipeline.Load(opts)
	if err != nil {
		return nil, 0, err
	}
	prog.done(fmt.Sprintf("Loaded %d packets from %s", len(records), opts.Input))
	return records, skipped, nil
}
