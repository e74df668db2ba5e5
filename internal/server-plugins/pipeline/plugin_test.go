package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
	mcpserver "github.com/alex-galey/docking-mcp/internal/server"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	plugin "github.com/alex-galey/docking-mcp/internal/server-plugins/pipeline"
)

type staticLogs []string

func (s staticLogs) GetLast(n int) []string {
	if n < len(s) {
		return s[len(s)-n:]
	}
	return s
}

// GetLastAtLevel treats lines carrying a WARN or ERROR marker as problems.
func (s staticLogs) GetLastAtLevel(n int, floor slog.Level) []string {
	var out staticLogs
	for _, line := range s {
		if strings.Contains(line, "WARN") || strings.Contains(line, "ERROR") {
			out = append(out, line)
		}
	}
	return out.GetLast(n)
}

func findTool(p *plugin.PipelineServerPlugin, name string) serverDomain.Tool {
	tools, err := p.GetTools(context.Background())
	Expect(err).NotTo(HaveOccurred())
	for _, t := range tools {
		if t.Name == name {
			return t
		}
	}
	Fail("tool not registered: " + name)
	return serverDomain.Tool{}
}

func call(p *plugin.PipelineServerPlugin, name string, args map[string]any) (*mcp.CallToolResult, mcpserver.ToolResponse) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := findTool(p, name).Handler(context.Background(), req)
	Expect(err).NotTo(HaveOccurred())

	var resp mcpserver.ToolResponse
	Expect(json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &resp)).To(Succeed())
	return result, resp
}

func readResource(p *plugin.PipelineServerPlugin, uri string) mcp.TextResourceContents {
	resources, err := p.GetResources(context.Background())
	Expect(err).NotTo(HaveOccurred())
	for _, r := range resources {
		if r.URI == uri {
			req := mcp.ReadResourceRequest{}
			req.Params.URI = uri
			contents, err := r.Handler(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(contents).To(HaveLen(1))
			return contents[0].(mcp.TextResourceContents)
		}
	}
	Fail("resource not registered: " + uri)
	return mcp.TextResourceContents{}
}

var _ = Describe("PipelineServerPlugin", func() {
	var (
		workDir    string
		controller *pipeline.Controller
		p          *plugin.PipelineServerPlugin
	)

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		controller = pipeline.NewController(pipeline.Dependencies{
			Executor: pipeline.InlineExecutor{},
			Logger:   logger,
			WorkDir:  workDir,
		})
		logs := staticLogs{"resolved vina password=hunter2", "ERROR step failed token=abc123", "Step 3 completed"}
		p = plugin.NewPipelineServerPlugin(controller, logs, logger)
	})

	It("registers six tools, two resources and the walkthrough prompt", func() {
		tools, err := p.GetTools(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(tools).To(HaveLen(6))
		for _, t := range tools {
			Expect(t.Builder().Name).To(Equal(t.Name))
		}

		resources, err := p.GetResources(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(resources).To(HaveLen(2))

		prompts, err := p.GetPrompts(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(prompts).To(HaveLen(1))
	})

	Describe("navigation", func() {
		It("advances and retreats within bounds", func() {
			_, resp := call(p, "pipeline_retreat", nil)
			Expect(resp.Data).To(HaveKeyWithValue("name", "tool_setup"))

			for range 10 {
				call(p, "pipeline_advance", nil)
			}
			_, resp = call(p, "pipeline_status", nil)
			Expect(resp.Message).To(Equal("Step 6 of 6: Run docking"))
			Expect(controller.CurrentStep()).To(Equal(pipeline.Docking))
		})
	})

	Describe("pipeline_set_input", func() {
		It("defaults to the current step", func() {
			controller.Advance()

			_, resp := call(p, "pipeline_set_input", map[string]any{"key": "structure_file", "value": "/data/protein.pdb"})

			Expect(resp.Status).To(Equal(mcpserver.ToolStatusOK))
			Expect(controller.Input(pipeline.ReceptorPrep, "structure_file")).To(Equal("/data/protein.pdb"))
		})

		It("accepts a step name", func() {
			call(p, "pipeline_set_input", map[string]any{"step": "ligand_prep", "key": "ligand_file", "value": "a.smi"})
			Expect(controller.Input(pipeline.LigandPrep, "ligand_file")).To(Equal("a.smi"))
		})

		It("rejects an unknown step", func() {
			result, resp := call(p, "pipeline_set_input", map[string]any{"step": "9", "key": "x", "value": "y"})
			Expect(result.IsError).To(BeTrue())
			Expect(resp.Code).To(Equal(mcpserver.CodeInvalidStep))
		})
	})

	Describe("execution", func() {
		BeforeEach(func() {
			controller.Advance()
			controller.Advance()
		})

		It("runs the current step and links to the next one on success", func() {
			ligands := filepath.Join(GinkgoT().TempDir(), "input.smi")
			Expect(os.WriteFile(ligands, []byte("CCO\nc1ccccc1\n"), 0o644)).To(Succeed())
			Expect(controller.SetInput(pipeline.LigandPrep, pipeline.InputLigandFile, ligands)).To(Succeed())

			result, resp := call(p, "pipeline_execute", map[string]any{"wait": true})

			Expect(result.IsError).To(BeFalse())
			Expect(resp.Message).To(Equal("Step 3 completed"))
			Expect(resp.Links).To(ContainElement(HaveField("Tool", "pipeline_advance")))
			Expect(controller.CurrentStep()).To(Equal(pipeline.LigandPrep))
			Expect(filepath.Join(workDir, pipeline.LigandFileName)).To(BeAnExistingFile())
		})

		It("reports a failed step and keeps it retrievable by ID", func() {
			result, resp := call(p, "pipeline_execute", nil)
			Expect(result.IsError).To(BeTrue())
			Expect(resp.Code).To(Equal(mcpserver.CodeStepFailed))

			data, ok := resp.Data.(map[string]any)
			Expect(ok).To(BeTrue())
			id, ok := data["id"].(string)
			Expect(ok).To(BeTrue())

			result, resp = call(p, "pipeline_execution", map[string]any{"id": id})
			Expect(result.IsError).To(BeTrue())
			Expect(resp.Message).To(ContainSubstring("ligand_file"))
		})

		It("hints at earlier steps when an artifact is missing", func() {
			controller.Advance()

			_, resp := call(p, "pipeline_execute", nil)

			Expect(resp.Code).To(Equal(mcpserver.CodeStepFailed))
			Expect(resp.Hint).To(Equal("Run the earlier steps that produce this artifact first"))
		})

		It("reports unknown execution IDs", func() {
			_, resp := call(p, "pipeline_execution", map[string]any{"id": "nope"})
			Expect(resp.Code).To(Equal(mcpserver.CodeExecutionNotFound))
		})
	})

	It("serves the state and the redacted logs as resources", func() {
		state := readResource(p, "docking://pipeline/state")
		var decoded pipeline.State
		Expect(json.Unmarshal([]byte(state.Text), &decoded)).To(Succeed())
		Expect(decoded.Current).To(Equal(pipeline.ToolSetup))
		Expect(decoded.Steps).To(HaveLen(6))

		logs := readResource(p, "docking://logs/recent")
		Expect(logs.MIMEType).To(Equal("text/plain"))
		Expect(logs.Text).To(Equal("resolved vina password=[redacted]\nERROR step failed token=[redacted]\nStep 3 completed"))

		problems := readResource(p, "docking://logs/problems")
		Expect(problems.Text).To(Equal("ERROR step failed token=[redacted]"))
	})

	It("fills the walkthrough prompt with the given files", func() {
		prompts, err := p.GetPrompts(context.Background())
		Expect(err).NotTo(HaveOccurred())

		req := mcp.GetPromptRequest{}
		req.Params.Arguments = map[string]string{"structure_file": "1abc.pdb"}
		result, err := prompts[0].Handler(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Messages).To(HaveLen(1))

		text := result.Messages[0].Content.(mcp.TextContent).Text
		Expect(text).To(ContainSubstring("set structure_file to 1abc.pdb"))
		Expect(text).To(ContainSubstring("set ligand_file to <ligands.smi>"))
	})
})
