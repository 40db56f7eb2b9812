package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

// CreateTaskTool handles the create_task MCP tool.
type CreateTaskTool struct {
	broker *broker.Broker
}

func NewCreateTaskTool(b *broker.Broker) *CreateTaskTool {
	return &CreateTaskTool{broker: b}
}

func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. Give either a single dominant element or a full affinity vector."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short task title"),
		),
		mcp.WithString("description",
			mcp.Description("Longer description"),
		),
		mcp.WithString("priority",
			mcp.Description("S (urgent) to C (low); default B"),
			mcp.Enum(store.Priorities...),
		),
		mcp.WithArray("required_skills",
			mcp.Description("Skills the task needs"),
			mcp.WithStringItems(),
		),
		mcp.WithString("element",
			mcp.Description("Dominant element: fire, metal, wood, water or earth (glyphs accepted)"),
		),
		mcp.WithObject("affinity",
			mcp.Description("Per-element weights 0-100; takes precedence over element"),
		),
	)
}

func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	task, err := t.broker.CreateTask(ctx, broker.TaskInput{
		Title:          title,
		Description:    req.GetString("description", ""),
		Priority:       req.GetString("priority", ""),
		RequiredSkills: stringsArg(req, "required_skills"),
		Element:        req.GetString("element", ""),
		Affinity:       profileArg(req, "affinity"),
	})
	if err != nil {
		return errorResult("create task", err), nil
	}
	return jsonResult(task)
}

// ListTasksTool handles the list_all_tasks MCP tool.
type ListTasksTool struct {
	broker *broker.Broker
}

func NewListTasksTool(b *broker.Broker) *ListTasksTool {
	return &ListTasksTool{broker: b}
}

func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list_all_tasks",
		mcp.WithDescription("List tasks, optionally filtered by status."),
		mcp.WithString("status",
			mcp.Description("Only return tasks in this status"),
			mcp.Enum(taskStatuses()...),
		),
	)
}

func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status *store.TaskStatus
	if s := req.GetString("status", ""); s != "" {
		ts := store.TaskStatus(s)
		if !ts.Valid() {
			return mcp.NewToolResultError("unknown 'status'"), nil
		}
		status = &ts
	}
	tasks, err := t.broker.ListTasks(ctx, status)
	if err != nil {
		return errorResult("list tasks", err), nil
	}
	return jsonResult(map[string]interface{}{
		"total": len(tasks),
		"tasks": tasks,
	})
}

// UpdateStatusTool handles the update_task_status MCP tool.
type UpdateStatusTool struct {
	broker *broker.Broker
}

func NewUpdateStatusTool(b *broker.Broker) *UpdateStatusTool {
	return &UpdateStatusTool{broker: b}
}

func (t *UpdateStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task_status",
		mcp.WithDescription("Report progress on a task."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task id"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status"),
			mcp.Enum(taskStatuses()...),
		),
		mcp.WithNumber("progress",
			mcp.Description("Percent complete, 0-100"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form progress notes"),
		),
	)
}

func (t *UpdateStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := req.GetString("status", "")
	if status == "" {
		return mcp.NewToolResultError("'status' is required"), nil
	}

	upd := broker.StatusUpdate{Status: store.TaskStatus(status)}
	if _, ok := req.GetArguments()["progress"]; ok {
		p := intArg(req, "progress", 0)
		upd.Progress = &p
	}
	if notes := req.GetString("notes", ""); notes != "" {
		upd.Notes = &notes
	}

	task, err := t.broker.UpdateTaskStatus(ctx, id, upd)
	if err != nil {
		return errorResult("update task", err), nil
	}
	return jsonResult(task)
}
