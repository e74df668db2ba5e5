package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
	mcpserver "github.com/alex-galey/docking-mcp/internal/server"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	stateResourceURI    = "docking://pipeline/state"
	logsResourceURI     = "docking://logs/recent"
	problemsResourceURI = "docking://logs/problems"

	defaultLogLines = 100
)

// Controller is the part of *pipeline.Controller the plugin drives.
type Controller interface {
	CurrentStep() pipeline.Step
	Advance() pipeline.Step
	Retreat() pipeline.Step
	SetInput(step pipeline.Step, key, value string) error
	ExecuteCurrentStep(ctx context.Context, opts ...pipeline.ExecuteOption) *pipeline.Execution
	Execution(id string) (*pipeline.Execution, bool)
	State() pipeline.State
}

// LogSource is satisfied by *logger.RingBuffer.
type LogSource interface {
	GetLast(n int) []string
	GetLastAtLevel(n int, floor slog.Level) []string
}

// PipelineServerPlugin exposes the six-step docking workflow: navigation,
// step inputs, asynchronous execution and the recent server log.
type PipelineServerPlugin struct {
	controller Controller
	logs       LogSource
	logger     *slog.Logger
}

func NewPipelineServerPlugin(controller Controller, logs LogSource, logger *slog.Logger) *PipelineServerPlugin {
	return &PipelineServerPlugin{controller: controller, logs: logs, logger: logger}
}

func (p *PipelineServerPlugin) ID() string   { return "pipeline" }
func (p *PipelineServerPlugin) Name() string { return "Docking Pipeline" }
func (p *PipelineServerPlugin) Description() string {
	return "Step-by-step docking workflow from tool setup to the docking run"
}
func (p *PipelineServerPlugin) Version() string { return "0.1.0" }

// ExecutionView is the JSON shape of an execution.
type ExecutionView struct {
	ID       string            `json:"id"`
	Step     pipeline.Step     `json:"step"`
	StepName string            `json:"step_name"`
	Running  bool              `json:"running"`
	Lines    []string          `json:"lines"`
	Outcome  *pipeline.Outcome `json:"outcome,omitempty"`
}

func viewOf(exec *pipeline.Execution) ExecutionView {
	v := ExecutionView{
		ID:       exec.ID,
		Step:     exec.Step,
		StepName: exec.Step.String(),
		Running:  exec.Running(),
		Lines:    exec.Lines(),
	}
	if outcome, ok := exec.Outcome(); ok {
		v.Outcome = &outcome
	}
	return v
}

func (p *PipelineServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         stateResourceURI,
			Name:        "Pipeline State",
			Description: "Current step, per-step inputs, completion and last outcomes",
			MIMEType:    "application/json",
			Handler:     p.handleStateResource,
		},
		{
			URI:         logsResourceURI,
			Name:        "Recent Logs",
			Description: "Most recent server log lines with credentials redacted",
			MIMEType:    "text/plain",
			Handler:     p.handleLogsResource,
		},
		{
			URI:         problemsResourceURI,
			Name:        "Recent Problems",
			Description: "Most recent warnings and errors, such as failed steps and missing tools",
			MIMEType:    "text/plain",
			Handler:     p.handleLogsResource,
		},
	}, nil
}

func (p *PipelineServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return []serverDomain.Tool{
		{
			Name:        "pipeline_status",
			Description: "Show the current step and the state of every step",
			Builder:     p.buildStatusTool,
			Handler:     p.handleStatus,
		},
		{
			Name:        "pipeline_advance",
			Description: "Move to the next step",
			Builder:     p.buildAdvanceTool,
			Handler:     p.handleAdvance,
		},
		{
			Name:        "pipeline_retreat",
			Description: "Move to the previous step",
			Builder:     p.buildRetreatTool,
			Handler:     p.handleRetreat,
		},
		{
			Name:        "pipeline_set_input",
			Description: "Set an input value for a step",
			Builder:     p.buildSetInputTool,
			Handler:     p.handleSetInput,
		},
		{
			Name:        "pipeline_execute",
			Description: "Run the current step in the background",
			Builder:     p.buildExecuteTool,
			Handler:     p.handleExecute,
		},
		{
			Name:        "pipeline_execution",
			Description: "Report progress and outcome of a step execution",
			Builder:     p.buildExecutionTool,
			Handler:     p.handleExecution,
		},
	}, nil
}

func (p *PipelineServerPlugin) GetPrompts(ctx context.Context) ([]serverDomain.Prompt, error) {
	return []serverDomain.Prompt{
		{
			Name:        "docking_walkthrough",
			Description: "Guide a docking run through all six steps",
			Builder:     p.buildWalkthroughPrompt,
			Handler:     p.handleWalkthroughPrompt,
		},
	}, nil
}

// Resource handlers
func (p *PipelineServerPlugin) handleStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(p.controller.State(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pipeline state: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func (p *PipelineServerPlugin) handleLogsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var lines []string
	if p.logs != nil {
		if req.Params.URI == problemsResourceURI {
			lines = p.logs.GetLastAtLevel(defaultLogLines, slog.LevelWarn)
		} else {
			lines = p.logs.GetLast(defaultLogLines)
		}
		lines = mcpserver.SanitizeLogLines(lines)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(lines, "\n"),
		},
	}, nil
}

// Tool builders
func (p *PipelineServerPlugin) buildStatusTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_status",
		mcp.WithDescription("Show the current step, the inputs set for each step, which steps completed and their last outcome"),
	)
}

func (p *PipelineServerPlugin) buildAdvanceTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_advance",
		mcp.WithDescription("Move to the next step. Stays on the last step when already there."),
	)
}

func (p *PipelineServerPlugin) buildRetreatTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_retreat",
		mcp.WithDescription("Move to the previous step. Stays on the first step when already there."),
	)
}

func (p *PipelineServerPlugin) buildSetInputTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_set_input",
		mcp.WithDescription("Set an input for a step, for example structure_file on receptor_prep or ligand_file on ligand_prep. Tool paths are set on tool_setup using the tool key. An empty value clears the input."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Input name"),
		),
		mcp.WithString("value",
			mcp.Description("Input value"),
		),
		mcp.WithString("step",
			mcp.Description("Step number (1-6) or name; defaults to the current step"),
		),
	)
}

func (p *PipelineServerPlugin) buildExecuteTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_execute",
		mcp.WithDescription("Run the current step in the background. Execution never changes the current step; call pipeline_advance after a success."),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for the step to finish before returning"),
		),
	)
}

func (p *PipelineServerPlugin) buildExecutionTool() mcp.Tool {
	return mcp.NewTool(
		"pipeline_execution",
		mcp.WithDescription("Report the progress lines and, once finished, the outcome of an execution"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Execution ID returned by pipeline_execute"),
		),
	)
}

// Tool handlers
func (p *PipelineServerPlugin) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := p.controller.State()
	return mcpserver.OK(fmt.Sprintf("Step %d of %d: %s", int(state.Current), int(pipeline.LastStep), state.Current.Description()), state), nil
}

func (p *PipelineServerPlugin) handleAdvance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return p.moved(p.controller.Advance()), nil
}

func (p *PipelineServerPlugin) handleRetreat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return p.moved(p.controller.Retreat()), nil
}

func (p *PipelineServerPlugin) moved(step pipeline.Step) *mcp.CallToolResult {
	return mcpserver.OK(fmt.Sprintf("Step %d: %s", int(step), step.Description()), map[string]any{
		"step":        step,
		"name":        step.String(),
		"description": step.Description(),
	})
}

func (p *PipelineServerPlugin) handleSetInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcpserver.MissingParam("Input key"), nil
	}
	value := req.GetString("value", "")

	step := p.controller.CurrentStep()
	if raw := req.GetString("step", ""); raw != "" {
		parsed, err := pipeline.ParseStep(raw)
		if err != nil {
			return mcpserver.Error(mcpserver.CodeInvalidStep, err.Error(), "Use a number from 1 to 6 or a step name", nil), nil
		}
		step = parsed
	}

	if err := p.controller.SetInput(step, key, value); err != nil {
		return mcpserver.Error(mcpserver.CodeInvalidInput, err.Error(), "", nil), nil
	}
	return mcpserver.OK(fmt.Sprintf("Input %s set on %s", key, step), map[string]any{
		"step":  step,
		"key":   key,
		"value": value,
	}), nil
}

func (p *PipelineServerPlugin) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exec := p.controller.ExecuteCurrentStep(ctx)

	if req.GetBool("wait", false) {
		select {
		case <-exec.Done():
		case <-ctx.Done():
		}
	}

	view := viewOf(exec)
	if view.Outcome == nil {
		resp := mcpserver.ToolResponse{
			Status:  mcpserver.ToolStatusOK,
			Message: fmt.Sprintf("Step %d started", int(exec.Step)),
			Data:    view,
		}
		return mcpserver.NewResultWithLogger(resp.WithLinks(mcpserver.Link("poll", "pipeline_execution", "id", exec.ID)), p.logger), nil
	}
	return outcomeResult(view), nil
}

func (p *PipelineServerPlugin) handleExecution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcpserver.MissingParam("Execution ID"), nil
	}
	exec, ok := p.controller.Execution(id)
	if !ok {
		return mcpserver.Error(mcpserver.CodeExecutionNotFound, fmt.Sprintf("No execution with ID %s", id), "", nil), nil
	}

	view := viewOf(exec)
	if view.Outcome == nil {
		return mcpserver.OK(fmt.Sprintf("Step %d running", int(exec.Step)), view), nil
	}
	return outcomeResult(view), nil
}

func outcomeResult(view ExecutionView) *mcp.CallToolResult {
	if view.Outcome.Success {
		resp := mcpserver.ToolResponse{
			Status:  mcpserver.ToolStatusOK,
			Message: fmt.Sprintf("Step %d completed", int(view.Step)),
			Data:    view,
		}
		if view.Step < pipeline.LastStep {
			resp = resp.WithLinks(mcpserver.Link("next", "pipeline_advance"))
		}
		return mcpserver.NewResult(resp)
	}
	hint := ""
	if pipeline.IsMissingArtifact(view.Outcome.Err) {
		hint = "Run the earlier steps that produce this artifact first"
	}
	return mcpserver.Error(mcpserver.CodeStepFailed, view.Outcome.Error, hint, view)
}

// Prompts
func (p *PipelineServerPlugin) buildWalkthroughPrompt() mcp.Prompt {
	return mcp.NewPrompt(
		"docking_walkthrough",
		mcp.WithPromptDescription("Guide a docking run through all six steps"),
		mcp.WithArgument("structure_file",
			mcp.ArgumentDescription("Receptor PDB file"),
		),
		mcp.WithArgument("ligand_file",
			mcp.ArgumentDescription("SMILES file with one ligand per line"),
		),
	)
}

func (p *PipelineServerPlugin) handleWalkthroughPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	structureFile := req.Params.Arguments["structure_file"]
	if structureFile == "" {
		structureFile = "<receptor.pdb>"
	}
	ligandFile := req.Params.Arguments["ligand_file"]
	if ligandFile == "" {
		ligandFile = "<ligands.smi>"
	}

	var sb strings.Builder
	sb.WriteString("Run a molecular docking with the pipeline tools. For each step: set its inputs with pipeline_set_input, ")
	sb.WriteString("run it with pipeline_execute, poll pipeline_execution until it finishes, then call pipeline_advance. ")
	sb.WriteString("Stop and report the progress lines if a step fails.\n\n")
	for _, step := range pipeline.Steps() {
		fmt.Fprintf(&sb, "%d. %s (%s)", int(step), step.Description(), step.String())
		switch step {
		case pipeline.ToolSetup:
			sb.WriteString(": call detect_tools first; use set_tool_path for anything missing")
		case pipeline.ReceptorPrep:
			fmt.Fprintf(&sb, ": set %s to %s", pipeline.InputStructureFile, structureFile)
		case pipeline.LigandPrep:
			fmt.Fprintf(&sb, ": set %s to %s", pipeline.InputLigandFile, ligandFile)
		}
		sb.WriteString("\n")
	}

	return &mcp.GetPromptResult{
		Description: "Docking walkthrough",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(sb.String()),
			},
		},
	}, nil
}
