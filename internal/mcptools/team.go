package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

// BalanceTool handles the check_wuxing_balance MCP tool.
type BalanceTool struct {
	broker *broker.Broker
}

func NewBalanceTool(b *broker.Broker) *BalanceTool {
	return &BalanceTool{broker: b}
}

func (t *BalanceTool) Definition() mcp.Tool {
	return mcp.NewTool("check_wuxing_balance",
		mcp.WithDescription("Compare the elemental mix of unfinished work with the ideal distribution and list imbalances."),
		mcp.WithString("timeframe",
			mcp.Description("Only count tasks touched within this window (default all)"),
			mcp.Enum("today", "week", "month", "all"),
		),
	)
}

func (t *BalanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.broker.Balance(ctx, req.GetString("timeframe", ""))
	if err != nil {
		return errorResult("check balance", err), nil
	}
	return jsonResult(report)
}

// DashboardTool handles the get_team_dashboard MCP tool.
type DashboardTool struct {
	broker *broker.Broker
}

func NewDashboardTool(b *broker.Broker) *DashboardTool {
	return &DashboardTool{broker: b}
}

func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("get_team_dashboard",
		mcp.WithDescription("Team dashboard: overview counts, element distribution, per-member progress or blocked tasks."),
		mcp.WithString("view",
			mcp.Description("Dashboard view (default overview)"),
			mcp.Enum(broker.ViewOverview, broker.ViewElements, broker.ViewProgress, broker.ViewBottleneck, "wuxing"),
		),
	)
}

func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.broker.Dashboard(ctx, req.GetString("view", ""))
	if err != nil {
		return errorResult("build dashboard", err), nil
	}
	return jsonResult(d)
}
