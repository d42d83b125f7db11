package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/graph"
)

// aggregateCommand creates the aggregate command, which writes the flow
// graph of a capture as JSON.
func (c *CLI) aggregateCommand() *cobra.Command {
	var (
		flags  flowFlags
		output string
		both   bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate <capture>",
		Short: "Aggregate a capture into a host or port graph (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(args[0], flags)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(c.Logger)
			records, skipped, err := c.load(opts)
			if err != nil {
				return err
			}
			models, _, hit, err := runner.ModelsWithCacheInfo(cmd.Context(), records, opts)
			if err != nil {
				return err
			}
			prog.done("Aggregated flows")

			m := models.For(opts.Mode)
			if output == "" {
				if both {
					return graph.WriteModels(models, os.Stdout)
				}
				return graph.WriteGraph(m, os.Stdout)
			}

			if both {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := graph.WriteModels(models, f); err != nil {
					return err
				}
			} else if err := graph.WriteGraphFile(m, output); err != nil {
				return err
			}

			printSuccess("Aggregated %s graph", opts.Mode)
			printStats(len(m.Nodes), len(m.Links), hit)
			if skipped > 0 || m.Skipped > 0 {
				printDetail("skipped %d frames, %d records", skipped, m.Skipped)
			}
			printFile(output)
			printNewline()
			printNextStep("Render it", appName+" render "+args[0]+" --mode "+string(opts.Mode))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&both, "both", false, "write the host and port graphs together")

	return cmd
}
