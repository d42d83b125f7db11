// Package pipeline runs the load → aggregate → layout → render pipeline
// shared by the CLI and the HTTP API.
//
// # Stages
//
//  1. Load: decode a pcap/pcapng capture and apply the time filter
//  2. Aggregate: build the host and port models together
//  3. Layout: build an engine for one mode and run it until it settles
//  4. Render: produce SVG, PNG or JSON from the settled layout
//
// Aggregation, layout and render results are cached by content hash
// through a [Runner]:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:   "capture.pcapng",
//	    Mode:    flow.ModePort,
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/layout"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxTicks bounds the post-burn-in ticks of a headless layout.
	// The default schedule settles in about 300.
	DefaultMaxTicks = 5000

	// DefaultTTL is how long cached results live.
	DefaultTTL = 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
type Options struct {
	// Load options
	Input string    `json:"input,omitempty"`
	From  time.Time `json:"from,omitzero"`
	To    time.Time `json:"to,omitzero"`

	// Layout options
	Mode     flow.Mode     `json:"mode,omitempty"`
	Params   layout.Params `json:"params"`
	MaxTicks int           `json:"max_ticks,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Records     int
	PacketsHash string
	Models      flow.Models
	Layout      graph.Layout
	Artifacts   map[string][]byte
	Stats       Stats
	CacheInfo   CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Skipped       int
	NodeCount     int
	LinkCount     int
	LoadTime      time.Duration
	AggregateTime time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	ModelsHit bool
	LayoutHit bool
	RenderHit bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateForLoad checks the input and time range.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input capture is required")
	}
	if !o.From.IsZero() && !o.To.IsZero() && o.To.Before(o.From) {
		return errors.New(errors.ErrCodeInvalidRange, "--to %s is before --from %s", o.To.Format(time.RFC3339), o.From.Format(time.RFC3339))
	}
	o.setLogger()
	return nil
}

// ValidateForLayout applies layout defaults and checks the mode.
func (o *Options) ValidateForLayout() error {
	mode, err := flow.ParseMode(string(o.Mode))
	if err != nil {
		return err
	}
	o.Mode = mode
	if o.Params == (layout.Params{}) {
		o.Params = layout.DefaultParams()
	}
	if o.MaxTicks <= 0 {
		o.MaxTicks = DefaultMaxTicks
	}
	o.setLogger()
	return nil
}

// ValidateForRender applies render defaults and checks formats.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	o.Formats = slices.Compact(slices.Sorted(slices.Values(o.Formats)))
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Mode:     string(o.Mode),
		Params:   o.Params,
		MaxTicks: o.MaxTicks,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}
