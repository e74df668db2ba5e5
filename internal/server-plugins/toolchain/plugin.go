package toolchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpserver "github.com/alex-galey/docking-mcp/internal/server"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	tc "github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/mark3labs/mcp-go/mcp"
)

const toolsResourceURI = "docking://tools"

// Resolver is the slice of *toolchain.Resolver exposed over MCP.
type Resolver interface {
	Catalog() *tc.Catalog
	SearchRoots() []string
	ResolveAll(ctx context.Context) map[string]tc.Detection
	Path(key string) (string, error)
	SetPath(key, path string) error
	Verify(ctx context.Context, key string) (tc.Verification, error)
}

// ToolchainServerPlugin exposes detection and configuration of the external
// programs the docking workflow depends on.
type ToolchainServerPlugin struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewToolchainServerPlugin(resolver Resolver, logger *slog.Logger) *ToolchainServerPlugin {
	return &ToolchainServerPlugin{resolver: resolver, logger: logger}
}

func (p *ToolchainServerPlugin) ID() string   { return "toolchain" }
func (p *ToolchainServerPlugin) Name() string { return "Tool Resolution" }
func (p *ToolchainServerPlugin) Description() string {
	return "Detect, configure and verify the format converter and docking engine"
}
func (p *ToolchainServerPlugin) Version() string { return "0.1.0" }

// ToolEntry is one row of the detection report and of the tools resource.
type ToolEntry struct {
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	Executable string      `json:"executable"`
	Required   bool        `json:"required"`
	Found      bool        `json:"found"`
	Path       string      `json:"path,omitempty"`
	Strategy   tc.Strategy `json:"strategy,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type DetectionReport struct {
	Tools           []ToolEntry `json:"tools"`
	MissingTools    []string    `json:"missing,omitempty"`
	RequiredMissing bool        `json:"required_missing"`
}

// GetResources implements serverDomain.ResourceProvider
func (p *ToolchainServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         toolsResourceURI,
			Name:        "Tool Configuration",
			Description: "Known tools, their configured paths and the directories searched for them",
			MIMEType:    "application/json",
			Handler:     p.handleToolsResource,
		},
	}, nil
}

// GetTools implements serverDomain.ToolProvider
func (p *ToolchainServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return []serverDomain.Tool{
		{
			Name:        "detect_tools",
			Description: "Locate every tool through the cache, PATH and the search roots",
			Builder:     p.buildDetectToolsTool,
			Handler:     p.handleDetectTools,
		},
		{
			Name:        "get_tool_path",
			Description: "Return the configured path of a tool without searching",
			Builder:     p.buildGetToolPathTool,
			Handler:     p.handleGetToolPath,
		},
		{
			Name:        "set_tool_path",
			Description: "Record an explicit path for a tool",
			Builder:     p.buildSetToolPathTool,
			Handler:     p.handleSetToolPath,
		},
		{
			Name:        "verify_tool",
			Description: "Check that the configured executable answers --version",
			Builder:     p.buildVerifyToolTool,
			Handler:     p.handleVerifyTool,
		},
	}, nil
}

func (p *ToolchainServerPlugin) handleToolsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	catalog := p.resolver.Catalog()
	entries := make([]ToolEntry, 0, catalog.Len())
	for _, spec := range catalog.Specs() {
		path, err := p.resolver.Path(spec.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool configuration: %w", err)
		}
		entries = append(entries, ToolEntry{
			Key:        spec.Key,
			Name:       spec.DisplayName,
			Executable: spec.ExecutableName,
			Required:   spec.Required,
			Found:      path != "",
			Path:       path,
		})
	}

	jsonData, err := json.MarshalIndent(map[string]any{
		"tools":        entries,
		"search_roots": p.resolver.SearchRoots(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tool configuration: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func (p *ToolchainServerPlugin) buildDetectToolsTool() mcp.Tool {
	return mcp.NewTool(
		"detect_tools",
		mcp.WithDescription("Locate OpenBabel and AutoDock Vina. Found paths are saved to the tool configuration file."),
	)
}

func (p *ToolchainServerPlugin) buildGetToolPathTool() mcp.Tool {
	return mcp.NewTool(
		"get_tool_path",
		mcp.WithDescription("Return the configured path of a tool. An empty path means it has not been detected or set."),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool key, for example obabel or vina"),
		),
	)
}

func (p *ToolchainServerPlugin) buildSetToolPathTool() mcp.Tool {
	return mcp.NewTool(
		"set_tool_path",
		mcp.WithDescription("Record an explicit path for a tool. The file must exist."),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool key, for example obabel or vina"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path of the executable"),
		),
	)
}

func (p *ToolchainServerPlugin) buildVerifyToolTool() mcp.Tool {
	return mcp.NewTool(
		"verify_tool",
		mcp.WithDescription("Run the configured executable with --version"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool key, for example obabel or vina"),
		),
	)
}

func (p *ToolchainServerPlugin) handleDetectTools(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detections := p.resolver.ResolveAll(ctx)

	report := DetectionReport{}
	for _, spec := range p.resolver.Catalog().Specs() {
		d := detections[spec.Key]
		entry := ToolEntry{
			Key:        spec.Key,
			Name:       spec.DisplayName,
			Executable: spec.ExecutableName,
			Required:   spec.Required,
			Found:      d.Found,
			Path:       d.Path,
			Strategy:   d.Strategy,
		}
		if d.Err != nil {
			entry.Error = d.Err.Error()
		}
		if !d.Found {
			report.MissingTools = append(report.MissingTools, spec.DisplayName)
			if spec.Required {
				report.RequiredMissing = true
			}
		}
		report.Tools = append(report.Tools, entry)
	}

	if len(report.MissingTools) > 0 {
		p.logger.Warn("Tool detection incomplete", "missing", report.MissingTools)
		resp := mcpserver.ToolResponse{
			Status:  mcpserver.ToolStatusPartial,
			Message: "Missing tools: " + strings.Join(report.MissingTools, ", "),
			Data:    report,
			Hint:    "Install the missing tools or record their location with set_tool_path",
		}
		return mcpserver.NewResultWithLogger(resp.WithLinks(mcpserver.Link("configure", "set_tool_path")), p.logger), nil
	}
	return mcpserver.OK("All tools found", report), nil
}

func (p *ToolchainServerPlugin) handleGetToolPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("tool")
	if err != nil {
		return mcpserver.MissingParam("Tool key"), nil
	}
	if _, ok := p.resolver.Catalog().Get(key); !ok {
		return unknownTool(key, p.resolver.Catalog()), nil
	}

	path, err := p.resolver.Path(key)
	if err != nil {
		return mcpserver.Error(mcpserver.CodeConfigUnreadable, fmt.Sprintf("Failed to read tool configuration: %v", err), "", nil), nil
	}
	data := map[string]string{"tool": key, "path": path}
	if path == "" {
		return mcpserver.OK(fmt.Sprintf("No path configured for %s", key), data), nil
	}
	return mcpserver.OK(path, data), nil
}

func (p *ToolchainServerPlugin) handleSetToolPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("tool")
	if err != nil {
		return mcpserver.MissingParam("Tool key"), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcpserver.MissingParam("Path"), nil
	}

	if err := p.resolver.SetPath(key, path); err != nil {
		var invalid *tc.InvalidPathError
		switch {
		case tc.IsUnknownToolError(err):
			return unknownTool(key, p.resolver.Catalog()), nil
		case errors.As(err, &invalid):
			return mcpserver.Error(mcpserver.CodeInvalidPath, err.Error(), "Point to an existing executable file", map[string]string{"tool": key, "path": path}), nil
		default:
			return mcpserver.Error(mcpserver.CodeConfigWriteFailed, err.Error(), "", nil), nil
		}
	}
	return mcpserver.OK(fmt.Sprintf("Path for %s set to %s", key, path), map[string]string{"tool": key, "path": path}), nil
}

func (p *ToolchainServerPlugin) handleVerifyTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("tool")
	if err != nil {
		return mcpserver.MissingParam("Tool key"), nil
	}

	v, err := p.resolver.Verify(ctx, key)
	if err != nil {
		if tc.IsUnknownToolError(err) {
			return unknownTool(key, p.resolver.Catalog()), nil
		}
		return mcpserver.Error(mcpserver.CodeVerificationFailed, err.Error(), "", nil), nil
	}
	if !v.OK {
		return mcpserver.Error(mcpserver.CodeToolUnusable, fmt.Sprintf("%s: %s", key, v.Detail), "Run detect_tools or set_tool_path", v), nil
	}
	return mcpserver.OK(fmt.Sprintf("%s is working", key), v), nil
}

func unknownTool(key string, catalog *tc.Catalog) *mcp.CallToolResult {
	return mcpserver.Error(mcpserver.CodeUnknownTool,
		fmt.Sprintf("Unknown tool %q", key),
		"Known tools: "+strings.Join(catalog.Keys(), ", "),
		nil)
}
