package mcptools

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

// FindBestMatchTool handles the find_best_match MCP tool.
type FindBestMatchTool struct {
	broker *broker.Broker
}

func NewFindBestMatchTool(b *broker.Broker) *FindBestMatchTool {
	return &FindBestMatchTool{broker: b}
}

func (t *FindBestMatchTool) Definition() mcp.Tool {
	return mcp.NewTool("find_best_match",
		mcp.WithDescription(
			"Rank active members against a task. Every candidate carries a per-component breakdown "+
				"(skill, elemental, workload) explaining the score.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task id"),
		),
		mcp.WithString("strategy",
			mcp.Description("Scoring strategy (default hybrid)"),
			mcp.Enum("hybrid", "skill", "elemental", "workload", "wuxing", "load"),
		),
	)
}

func (t *FindBestMatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := t.broker.FindBestMatch(ctx, id, req.GetString("strategy", ""))
	if err != nil {
		return errorResult("find match", err), nil
	}
	return jsonResult(report)
}

// AssignTaskTool handles the assign_task MCP tool.
type AssignTaskTool struct {
	broker *broker.Broker
}

func NewAssignTaskTool(b *broker.Broker) *AssignTaskTool {
	return &AssignTaskTool{broker: b}
}

func (t *AssignTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("assign_task",
		mcp.WithDescription("Assign a task to a member. Without member_id the best hybrid match is chosen."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task id"),
		),
		mcp.WithString("member_id",
			mcp.Description("Member to assign; omit for automatic assignment"),
		),
	)
}

func (t *AssignTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var memberID *uuid.UUID
	if strings.TrimSpace(req.GetString("member_id", "")) != "" {
		id, err := idArg(req, "member_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		memberID = &id
	}

	assignment, err := t.broker.Assign(ctx, taskID, memberID)
	if err != nil {
		return errorResult("assign task", err), nil
	}
	return jsonResult(assignment)
}

// RecommendPartnersTool handles the recommend_partners MCP tool.
type RecommendPartnersTool struct {
	broker *broker.Broker
}

func NewRecommendPartnersTool(b *broker.Broker) *RecommendPartnersTool {
	return &RecommendPartnersTool{broker: b}
}

func (t *RecommendPartnersTool) Definition() mcp.Tool {
	return mcp.NewTool("recommend_partners",
		mcp.WithDescription("Suggest members whose elements and skills complement the given member."),
		mcp.WithString("member_id",
			mcp.Required(),
			mcp.Description("Member to find partners for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum partners to return (default 3)"),
		),
	)
}

func (t *RecommendPartnersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "member_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	partners, err := t.broker.RecommendPartners(ctx, id, intArg(req, "limit", 0))
	if err != nil {
		return errorResult("recommend partners", err), nil
	}
	return jsonResult(map[string]interface{}{
		"member_id":       id,
		"recommendations": partners,
	})
}

// TeamFitTool handles the get_team_fit MCP tool.
type TeamFitTool struct {
	broker *broker.Broker
}

func NewTeamFitTool(b *broker.Broker) *TeamFitTool {
	return &TeamFitTool{broker: b}
}

func (t *TeamFitTool) Definition() mcp.Tool {
	return mcp.NewTool("get_team_fit",
		mcp.WithDescription("Score how well a member fills the elemental gaps of the rest of the team (0-100)."),
		mcp.WithString("member_id",
			mcp.Required(),
			mcp.Description("Member id"),
		),
	)
}

func (t *TeamFitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "member_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fit, err := t.broker.TeamFit(ctx, id)
	if err != nil {
		return errorResult("compute team fit", err), nil
	}
	return jsonResult(fit)
}
