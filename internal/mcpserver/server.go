// Package mcpserver exposes the dispatchers over the Model Context Protocol:
// one MCP tool per entity, carried over stdio. This is the composition
// boundary; no dispatch logic lives here.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"omnibridge"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New wraps the runtime in an MCP server with one tool per dispatcher.
func New(rt *omnibridge.Server) *server.MCPServer {
	s := server.NewMCPServer(
		"omnibridge",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(rt)),
	)

	for _, name := range rt.ListTools() {
		tool, err := rt.GetToolByName(name)
		if err != nil {
			continue
		}
		s.AddTool(definition(tool), handler(rt, tool.Name()))
	}
	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(rt *omnibridge.Server) error {
	return server.ServeStdio(New(rt))
}

// parameterized is implemented by dispatchers that can document their
// per-operation parameters.
type parameterized interface {
	OperationParameters() string
}

func definition(tool omnibridge.Tool) mcp.Tool {
	ops := tool.Operations()
	desc := fmt.Sprintf(
		"%s Pass the desired operation in the 'operation' field; further parameters depend on the operation.",
		tool.Description())
	if p, ok := tool.(parameterized); ok {
		desc = fmt.Sprintf("%s Parameters per operation (optional marked '?'): %s.",
			desc, p.OperationParameters())
	}
	return mcp.NewTool(tool.Name(),
		mcp.WithDescription(desc),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("One of: %s", strings.Join(ops, ", "))),
			mcp.Enum(ops...),
		),
	)
}

// handler adapts a dispatcher to the MCP call shape. Every outcome,
// including operation failures, is serialized as the uniform envelope;
// IsError is reserved for transport-level faults.
func handler(rt *omnibridge.Server, toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := rt.Dispatch(ctx, toolName, req.GetArguments())

		payload, err := json.Marshal(env)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func serverInstructions(rt *omnibridge.Server) string {
	var b strings.Builder
	b.WriteString(`You have access to omnibridge, a server that exposes a task-management
application's data model as remotely invokable operations.

Every tool takes an 'operation' field selecting what to do, plus
operation-specific parameters. Responses are a uniform envelope:
{success, data?, error?, metadata}. On failure, error.code is a stable
machine-readable code and error.hint (when present) tells you how to recover.

Reads are cached briefly (metadata.from_cache reports a cache hit); any
mutation invalidates the affected caches before the response returns, so a
read issued after a mutation always reflects it.

Available tools:
`)
	for _, name := range rt.ListTools() {
		tool, err := rt.GetToolByName(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: operations %s\n", tool.Name(), strings.Join(tool.Operations(), ", "))
	}
	b.WriteString(`
Batch operations (tasks batch_create / bulk_delete) support dryRun=true,
which returns the execution plan without changing anything. Use it before
large batches.`)
	return b.String()
}
