package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/graph"
)

// layoutCommand creates the layout command, which runs the simulation to
// rest and writes the node positions as JSON.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags  flowFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout <capture>",
		Short: "Compute a settled force layout (JSON)",
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

			records, _, err := c.load(opts)
			if err != nil {
				return err
			}
			models, hash, _, err := runner.ModelsWithCacheInfo(cmd.Context(), records, opts)
			if err != nil {
				return err
			}
			m := models.For(opts.Mode)

			spinner := newSpinnerWithContext(cmd.Context(), "Running force simulation...")
			spinner.Start()
			l, hit, err := runner.LayoutWithCacheInfo(cmd.Context(), m, hash, opts)
			if err != nil {
				spinner.StopWithError("Layout failed")
				return err
			}
			spinner.Stop()

			if output == "" {
				return graph.WriteLayout(l, os.Stdout)
			}
			if err := graph.WriteLayoutFile(l, output); err != nil {
				return err
			}

			printSuccess("Laid out %s graph in %d ticks", opts.Mode, l.Ticks)
			printStats(len(l.Nodes), len(l.Links), hit)
			if !l.Stable {
				printWarning("layout stopped before settling (alpha %.3f)", l.Alpha)
			}
			printFile(output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}
