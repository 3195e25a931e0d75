package main

import (
	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/infrastructure/tools"
	toolsmcp "github.com/creditdesk/riskflow/internal/infrastructure/tools/mcp"
	"github.com/creditdesk/riskflow/internal/observability/logging"
)

var toolsServeCmd = &cobra.Command{
	Use:   "tools-serve",
	Short: "Serve the underwriting tools over MCP on stdio",
	Long: "Exposes calculate_dti and get_collateral_valuation to MCP hosts over\n" +
		"stdin/stdout, backed by the same gateway the workflow uses.",
	RunE: runToolsServe,
}

func runToolsServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.NewJSONLogger("riskctl-tools", cfg.LogLevel)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return err
	}

	var book *tools.CollateralBook
	if policy.CollateralBook != "" {
		book, err = tools.LoadCollateralBook(policy.CollateralBook)
		if err != nil {
			return err
		}
	}

	financial := tools.NewFinancialTools(policy.Escalation.DTIThreshold, book)
	registry, err := tools.NewRegistry(logger, financial.Definitions()...)
	if err != nil {
		return err
	}

	logger.Info("starting tool server over stdio")
	srv := toolsmcp.NewServer(registry, version)
	return srv.Run(cmd.Context(), &sdkmcp.StdioTransport{})
}
