package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/hcm/internal/git"
	"github.com/joescharf/hcm/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Exposes campaign history and read-only campaign checks to MCP clients.
Configure a client with:

  {
    "mcpServers": {
      "hcm": { "command": "hcm", "args": ["mcp"] }
    }
  }

Available tools: hcm_list_campaigns, hcm_show_campaign, hcm_plan_campaign,
hcm_check_campaign`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(s, git.NewClient(), settingsFromConfig())
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
