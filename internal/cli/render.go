package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	flags    flowFlags
	output   string // output file path (or base path for multiple outputs)
	formats  string // comma-separated output formats
	detailed bool   // label nodes with volume and protocols
}

// renderCommand creates the render command, which draws the settled layout
// of a capture as SVG, PNG or JSON.
func (c *CLI) renderCommand() *cobra.Command {
	var ro renderOpts

	cmd := &cobra.Command{
		Use:   "render <capture>",
		Short: "Render a capture's flow graph to SVG, PNG or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(args[0], ro.flags)
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(ro.formats)
			opts.Detailed = ro.detailed
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), ro.flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(cmd.Context(), "Rendering...")
			spinner.Start()
			result, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				spinner.StopWithError("Render failed")
				return err
			}
			spinner.Stop()

			return writeArtifacts(result, opts, ro.output)
		},
	}

	ro.flags.register(cmd)
	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&ro.formats, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	cmd.Flags().BoolVar(&ro.detailed, "detailed", false, "label nodes with volume and protocols")

	return cmd
}

func writeArtifacts(result *pipeline.Result, opts pipeline.Options, output string) error {
	multi := len(opts.Formats) > 1
	var paths []string
	for _, format := range opts.Formats {
		path := outputPath(output, opts.Input, opts.Mode, format, multi)
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	printSuccess("Rendered %s graph", opts.Mode)
	printStats(result.Stats.NodeCount, result.Stats.LinkCount, result.CacheInfo.RenderHit)
	if !result.Layout.Stable {
		printWarning("layout stopped before settling (alpha %.3f)", result.Layout.Alpha)
	}
	for _, p := range paths {
		printFile(p)
	}
	return nil
}
