package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// URIScheme prefixes every resource the docking server exposes.
const URIScheme = "docking://"

// Kind names the three capability namespaces of an MCP server. Names only
// need to be unique within one kind.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindPrompt   Kind = "prompt"
)

// ServerPlugin is a named bundle of MCP capabilities. A plugin implements
// any of ToolProvider, ResourceProvider and PromptProvider.
type ServerPlugin interface {
	ID() string
	Name() string
	Description() string
	Version() string
}

type ResourceProvider interface {
	ServerPlugin
	GetResources(ctx context.Context) ([]Resource, error)
}

type ToolProvider interface {
	ServerPlugin
	GetTools(ctx context.Context) ([]Tool, error)
}

type PromptProvider interface {
	ServerPlugin
	GetPrompts(ctx context.Context) ([]Prompt, error)
}

type (
	ResourceHandler = server.ResourceHandlerFunc
	ToolHandler     = server.ToolHandlerFunc
	PromptHandler   = server.PromptHandlerFunc
)

// Resource is a read-only document such as the tool configuration or the
// pipeline state.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Handler     ResourceHandler
}

func (r Resource) Validate() error {
	switch {
	case !strings.HasPrefix(r.URI, URIScheme) || len(r.URI) == len(URIScheme):
		return fmt.Errorf("resource URI %q must start with %s", r.URI, URIScheme)
	case r.MIMEType == "":
		return fmt.Errorf("resource %s has no MIME type", r.URI)
	case r.Handler == nil:
		return fmt.Errorf("resource %s has no handler", r.URI)
	}
	return nil
}

// Definition returns the MCP descriptor of the resource.
func (r Resource) Definition() mcp.Resource {
	return mcp.NewResource(r.URI, r.Name,
		mcp.WithResourceDescription(r.Description),
		mcp.WithMIMEType(r.MIMEType),
	)
}

// Tool is an invocable operation. Builder produces the input schema; its
// name must match Name.
type Tool struct {
	Name        string
	Description string
	Builder     func() mcp.Tool
	Handler     ToolHandler
}

func (t Tool) Validate() error {
	if t.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if t.Builder == nil || t.Handler == nil {
		return fmt.Errorf("tool %s needs both a builder and a handler", t.Name)
	}
	if built := t.Builder().Name; built != t.Name {
		return fmt.Errorf("tool %s builds a definition named %q", t.Name, built)
	}
	return nil
}

type Prompt struct {
	Name        string
	Description string
	Builder     func() mcp.Prompt
	Handler     PromptHandler
}

func (p Prompt) Validate() error {
	if p.Name == "" {
		return errors.New("prompt name cannot be empty")
	}
	if p.Builder == nil || p.Handler == nil {
		return fmt.Errorf("prompt %s needs both a builder and a handler", p.Name)
	}
	if built := p.Builder().Name; built != p.Name {
		return fmt.Errorf("prompt %s builds a definition named %q", p.Name, built)
	}
	return nil
}
