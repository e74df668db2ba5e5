package receptor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	mcpserver "github.com/alex-galey/docking-mcp/internal/server"
	plugin "github.com/alex-galey/docking-mcp/internal/server-plugins/receptor"
	"github.com/alex-galey/docking-mcp/internal/structure"
)

type fakePreparer struct {
	result *receptor.Result
	err    error

	structureFile string
	outputDir     string
}

func (f *fakePreparer) Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error) {
	f.structureFile = structureFile
	f.outputDir = outputDir
	return f.result, f.err
}

func prepare(p *plugin.ReceptorServerPlugin, args map[string]any) (*mcp.CallToolResult, mcpserver.ToolResponse) {
	tools, err := p.GetTools(context.Background())
	Expect(err).NotTo(HaveOccurred())
	Expect(tools).To(HaveLen(1))
	Expect(tools[0].Builder().Name).To(Equal("prepare_receptor"))

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := tools[0].Handler(context.Background(), req)
	Expect(err).NotTo(HaveOccurred())

	var resp mcpserver.ToolResponse
	Expect(json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &resp)).To(Succeed())
	return result, resp
}

var _ = Describe("ReceptorServerPlugin", func() {
	var (
		workDir  string
		preparer *fakePreparer
		p        *plugin.ReceptorServerPlugin
	)

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
		preparer = &fakePreparer{result: &receptor.Result{
			ConvertedPath: filepath.Join(workDir, "protein.pdbqt"),
			ParamFilePath: filepath.Join(workDir, "vina.conf"),
			Center:        structure.Point3{X: 1, Y: 2, Z: 3},
			Size:          structure.Box3{X: 22, Y: 22, Z: 20},
			LigandAtoms:   3,
		}}
		p = plugin.NewReceptorServerPlugin(preparer, workDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("resolves relative paths against the work directory and defaults the output there", func() {
		result, resp := prepare(p, map[string]any{"structure_file": "protein.pdb"})

		Expect(result.IsError).To(BeFalse())
		Expect(resp.Status).To(Equal(mcpserver.ToolStatusOK))
		Expect(preparer.structureFile).To(Equal(filepath.Join(workDir, "protein.pdb")))
		Expect(preparer.outputDir).To(Equal(workDir))
		Expect(resp.Data).To(HaveKeyWithValue("ligand_atoms", BeNumerically("==", 3)))
	})

	It("passes an explicit output directory through", func() {
		out := filepath.Join(GinkgoT().TempDir(), "receptor")

		prepare(p, map[string]any{"structure_file": "/data/protein.pdb", "output_dir": out})

		Expect(preparer.structureFile).To(Equal("/data/protein.pdb"))
		Expect(preparer.outputDir).To(Equal(out))
	})

	It("marks a fallback search box as a partial result", func() {
		preparer.result.UsedFallback = true
		preparer.result.LigandAtoms = 0

		result, resp := prepare(p, map[string]any{"structure_file": "protein.pdb"})

		Expect(result.IsError).To(BeFalse())
		Expect(resp.Status).To(Equal(mcpserver.ToolStatusPartial))
	})

	It("reports the failing stage with a hint", func() {
		preparer.result = nil
		preparer.err = &receptor.PreparationError{
			Stage:  receptor.StageConversion,
			Detail: "format converter failed",
			Err:    errors.New("exit status 1"),
		}

		result, resp := prepare(p, map[string]any{"structure_file": "protein.pdb"})

		Expect(result.IsError).To(BeTrue())
		Expect(resp.Code).To(Equal(mcpserver.CodePreparationFailed))
		Expect(resp.Data).To(HaveKeyWithValue("stage", "conversion"))
		Expect(resp.Hint).To(ContainSubstring("obabel"))
	})

	It("requires a structure file", func() {
		result, resp := prepare(p, map[string]any{})

		Expect(result.IsError).To(BeTrue())
		Expect(resp.Code).To(Equal(mcpserver.CodeInvalidParams))
		Expect(preparer.structureFile).To(BeEmpty())
	})
})
