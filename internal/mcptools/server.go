package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Tool is the shape every Concord MCP tool implements.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every Concord tool bound to b.
func Tools(b *broker.Broker) []Tool {
	return []Tool{
		NewRegisterMemberTool(b),
		NewListMembersTool(b),
		NewMyTasksTool(b),
		NewCreateTaskTool(b),
		NewListTasksTool(b),
		NewUpdateStatusTool(b),
		NewFindBestMatchTool(b),
		NewAssignTaskTool(b),
		NewRecommendPartnersTool(b),
		NewTeamFitTool(b),
		NewBalanceTool(b),
		NewDashboardTool(b),
	}
}

// NewServer builds the MCP server with all tools registered.
func NewServer(b *broker.Broker) *server.MCPServer {
	s := server.NewMCPServer(
		"concord",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range Tools(b) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP for mounting
// on the API router.
func NewHTTPHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s, server.WithStateLess(true))
}

const instructions = `Concord matches tasks to team members.
Register members with skills and an elemental profile, create tasks, then use
find_best_match to see ranked candidates with score breakdowns or assign_task
to hand work out. recommend_partners and get_team_fit look at how members
complement each other; check_wuxing_balance and get_team_dashboard summarise
the team.`
