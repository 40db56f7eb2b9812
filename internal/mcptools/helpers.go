// Package mcptools exposes the broker as MCP tools.
//
// Each tool is a struct holding the broker, with Definition() returning the
// mcp.Tool schema and Handle() serving calls. Results are JSON text so agents
// get the same shapes the REST API returns.
package mcptools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
)

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringsArg accepts either a JSON array of strings or a comma-separated string.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return strings.Split(v, ",")
	}
	return nil
}

// profileArg reads an element-to-score object. Keys may be element names or
// glyphs; anything else is ignored.
func profileArg(req mcp.CallToolRequest, key string) *scoring.Profile {
	raw, ok := req.GetArguments()[key].(map[string]interface{})
	if !ok {
		return nil
	}
	values := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			values[k] = f
		}
	}
	p := scoring.ProfileFromMap(values)
	return &p
}

func idArg(req mcp.CallToolRequest, key string) (uuid.UUID, error) {
	s := strings.TrimSpace(req.GetString(key, ""))
	if s == "" {
		return uuid.Nil, fmt.Errorf("'%s' is required", key)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("'%s' is not a valid id", key)
	}
	return id, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports broker errors as tool errors. Only unexpected failures
// carry a prefix; validation and lookup errors are shown as-is.
func errorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, broker.ErrInvalidInput),
		errors.Is(err, broker.ErrTaskNotFound),
		errors.Is(err, broker.ErrMemberNotFound),
		errors.Is(err, broker.ErrTaskNotAssignable),
		errors.Is(err, scoring.ErrUnknownStrategy),
		errors.Is(err, scoring.ErrNoEligibleMember):
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}
