package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/api"
)

// serveCommand creates the serve command, which exposes graphs, layouts
// and renders of one capture over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags flowFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve <capture>",
		Short: "Serve graphs, layouts and renders of a capture over HTTP",
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

			if addr == "" {
				addr = c.Config.Server.Addr
			}
			read, write := c.Config.Server.Timeouts()
			srv := api.NewServer(addr, records, runner,
				api.WithLogger(c.Logger),
				api.WithOptions(opts),
				api.WithTimeouts(read, write))

			printInfo("Serving %s on %s", StyleHighlight.Render(args[0]), StyleLink.Render("http://"+displayAddr(addr)))
			printDetail("GET /api/v1/graph/{host|port}")
			printDetail("GET /api/v1/layout/{host|port}")
			printDetail("GET /api/v1/render/{host|port}.{svg|png|json}")
			return srv.ListenAndServe(cmd.Context())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :8080)")

	return cmd
}

// displayAddr turns a listen address into something a browser can open.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
