package cmd

import (
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Galvano MCP server",
	Long: `Launch an MCP server over stdio so AI agents can segment traces with the
analyze_cycles tool. Engine flags set the defaults; each tool call may override them.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindCommandFlags(cmd); err != nil {
			return err
		}
		if err := loadInput(); err != nil {
			return err
		}
		if err := contract.ProcessWithoutInput(cfg, input); err != nil {
			return err
		}
		return openRunStore()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, runStore)
	},
}
