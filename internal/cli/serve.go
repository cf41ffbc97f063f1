package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/signature-tools-mcp/internal/server"
)

func newServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Serve the signature tools over the Model Context Protocol (JSON-RPC 2.0, one
message per line on stdin/stdout). Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, log, err := setup(cmd)
			if err != nil {
				return err
			}
			srv := server.New(svc, log.WithComponent("mcp"))
			srv.SetVersion(version)
			log.Info("serving MCP on stdio (version %s)", version)
			return srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
