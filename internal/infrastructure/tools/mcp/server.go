package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/core/ports"
	"github.com/creditdesk/riskflow/internal/infrastructure/tools"
)

// Server exposes the tool gateway over the Model Context Protocol, so
// external agent hosts can call the same underwriting computations the
// workflow uses internally.
type Server struct {
	MCPServer *sdkmcp.Server
	gateway   ports.ToolGateway
}

func NewServer(gateway ports.ToolGateway, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "riskflow-tools", Version: version},
			nil,
		),
		gateway: gateway,
	}
	s.registerTools()
	return s
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        tools.ToolCalculateDTI,
		Description: "Compute the borrower's debt-to-income ratio from monthly debt payments and gross monthly income.",
	}, s.handleCalculateDTI)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        tools.ToolCollateralValuation,
		Description: "Look up the appraised valuation for a collateral asset by its ID.",
	}, s.handleCollateralValuation)
}

type calculateDTIInput struct {
	MonthlyDebt float64 `json:"monthly_debt" jsonschema:"total monthly debt payments"`
	GrossIncome float64 `json:"gross_income" jsonschema:"gross monthly income, must be positive"`
}

type collateralValuationInput struct {
	AssetID string `json:"asset_id" jsonschema:"collateral asset identifier"`
}

func (s *Server) handleCalculateDTI(ctx context.Context, _ *sdkmcp.CallToolRequest, input calculateDTIInput) (*sdkmcp.CallToolResult, tools.DTIResult, error) {
	record := s.gateway.Invoke(ctx, tools.ToolCalculateDTI, map[string]any{
		"monthly_debt": input.MonthlyDebt,
		"gross_income": input.GrossIncome,
	})
	if record.Status != domain.ToolSucceeded {
		return nil, tools.DTIResult{}, fmt.Errorf("%s: %s", record.ErrorKind, record.Error)
	}
	result, ok := record.Result.(tools.DTIResult)
	if !ok {
		return nil, tools.DTIResult{}, fmt.Errorf("unexpected result type for %s", tools.ToolCalculateDTI)
	}
	return nil, result, nil
}

func (s *Server) handleCollateralValuation(ctx context.Context, _ *sdkmcp.CallToolRequest, input collateralValuationInput) (*sdkmcp.CallToolResult, tools.ValuationResult, error) {
	record := s.gateway.Invoke(ctx, tools.ToolCollateralValuation, map[string]any{
		"asset_id": input.AssetID,
	})
	if record.Status != domain.ToolSucceeded {
		return nil, tools.ValuationResult{}, fmt.Errorf("%s: %s", record.ErrorKind, record.Error)
	}
	result, ok := record.Result.(tools.ValuationResult)
	if !ok {
		return nil, tools.ValuationResult{}, fmt.Errorf("unexpected result type for %s", tools.ToolCollateralValuation)
	}
	return nil, result, nil
}
