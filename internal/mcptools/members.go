package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

// RegisterMemberTool handles the register_member MCP tool.
type RegisterMemberTool struct {
	broker *broker.Broker
}

func NewRegisterMemberTool(b *broker.Broker) *RegisterMemberTool {
	return &RegisterMemberTool{broker: b}
}

func (t *RegisterMemberTool) Definition() mcp.Tool {
	return mcp.NewTool("register_member",
		mcp.WithDescription("Register a team member with their skills and optional elemental profile."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Member display name"),
		),
		mcp.WithArray("skills",
			mcp.Description("Skill tags, e.g. [\"go\", \"postgres\"]"),
			mcp.WithStringItems(),
		),
		mcp.WithObject("elements",
			mcp.Description("Elemental profile, 0-100 per element: fire, metal, wood, water, earth. Omit if unknown."),
		),
	)
}

func (t *RegisterMemberTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	m, err := t.broker.RegisterMember(ctx, broker.MemberInput{
		Name:     name,
		Skills:   stringsArg(req, "skills"),
		Elements: profileArg(req, "elements"),
	})
	if err != nil {
		return errorResult("register member", err), nil
	}
	return jsonResult(m)
}

// ListMembersTool handles the list_all_members MCP tool.
type ListMembersTool struct {
	broker *broker.Broker
}

func NewListMembersTool(b *broker.Broker) *ListMembersTool {
	return &ListMembersTool{broker: b}
}

func (t *ListMembersTool) Definition() mcp.Tool {
	return mcp.NewTool("list_all_members",
		mcp.WithDescription("List team members with their skills and elemental profiles."),
		mcp.WithString("status",
			mcp.Description("Filter by member status"),
			mcp.Enum(string(store.MemberActive), string(store.MemberInactive)),
		),
	)
}

func (t *ListMembersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status *store.MemberStatus
	if s := req.GetString("status", ""); s != "" {
		ms := store.MemberStatus(s)
		if ms != store.MemberActive && ms != store.MemberInactive {
			return mcp.NewToolResultError("'status' must be active or inactive"), nil
		}
		status = &ms
	}
	members, err := t.broker.ListMembers(ctx, status)
	if err != nil {
		return errorResult("list members", err), nil
	}
	return jsonResult(map[string]interface{}{
		"total":   len(members),
		"members": members,
	})
}

// MyTasksTool handles the get_my_tasks MCP tool.
type MyTasksTool struct {
	broker *broker.Broker
}

func NewMyTasksTool(b *broker.Broker) *MyTasksTool {
	return &MyTasksTool{broker: b}
}

func (t *MyTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("get_my_tasks",
		mcp.WithDescription("Get the tasks assigned to a member, most urgent first, with a per-status summary."),
		mcp.WithString("member_id",
			mcp.Required(),
			mcp.Description("Member id"),
		),
		mcp.WithString("status",
			mcp.Description("Only return tasks in this status"),
			mcp.Enum(taskStatuses()...),
		),
	)
}

func (t *MyTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "member_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var status *store.TaskStatus
	if s := req.GetString("status", ""); s != "" {
		ts := store.TaskStatus(s)
		if !ts.Valid() {
			return mcp.NewToolResultError("unknown 'status'"), nil
		}
		status = &ts
	}
	tasks, err := t.broker.MemberTasks(ctx, id, status)
	if err != nil {
		return errorResult("get tasks", err), nil
	}
	return jsonResult(tasks)
}

func taskStatuses() []string {
	return []string{
		string(store.StatusPending),
		string(store.StatusInProgress),
		string(store.StatusCompleted),
		string(store.StatusBlocked),
	}
}
