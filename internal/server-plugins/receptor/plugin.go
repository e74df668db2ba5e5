package receptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	mcpserver "github.com/alex-galey/docking-mcp/internal/server"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// Preparer is satisfied by *receptor.Preparer.
type Preparer interface {
	Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error)
}

// ReceptorServerPlugin exposes receptor preparation as a single tool.
type ReceptorServerPlugin struct {
	preparer Preparer
	workDir  string
	logger   *slog.Logger
}

// NewReceptorServerPlugin creates the plugin. Relative paths given to the
// tool are resolved against workDir, which is also the default output
// directory.
func NewReceptorServerPlugin(preparer Preparer, workDir string, logger *slog.Logger) *ReceptorServerPlugin {
	return &ReceptorServerPlugin{preparer: preparer, workDir: workDir, logger: logger}
}

func (p *ReceptorServerPlugin) ID() string   { return "receptor" }
func (p *ReceptorServerPlugin) Name() string { return "Receptor Preparation" }
func (p *ReceptorServerPlugin) Description() string {
	return "Convert a receptor structure to PDBQT and write the docking search box"
}
func (p *ReceptorServerPlugin) Version() string { return "0.1.0" }

func (p *ReceptorServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return []serverDomain.Tool{
		{
			Name:        "prepare_receptor",
			Description: "Convert a PDB receptor to rigid PDBQT and derive vina.conf from its ligand atoms",
			Builder:     p.buildPrepareReceptorTool,
			Handler:     p.handlePrepareReceptor,
		},
	}, nil
}

func (p *ReceptorServerPlugin) buildPrepareReceptorTool() mcp.Tool {
	return mcp.NewTool(
		"prepare_receptor",
		mcp.WithDescription("Convert a PDB receptor to rigid PDBQT and write vina.conf. The search box is centered on the HETATM records of the original file, padded by 10 Å, and falls back to a 20 Å box at the origin when there are none."),
		mcp.WithString("structure_file",
			mcp.Required(),
			mcp.Description("Path of the receptor PDB file"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for the PDBQT and vina.conf (defaults to the work directory)"),
		),
	)
}

func (p *ReceptorServerPlugin) handlePrepareReceptor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	structureFile, err := req.RequireString("structure_file")
	if err != nil {
		return mcpserver.MissingParam("Structure file"), nil
	}
	outputDir := req.GetString("output_dir", "")
	if outputDir == "" {
		outputDir = p.workDir
	}

	result, err := p.preparer.Prepare(ctx, p.abs(structureFile), p.abs(outputDir))
	if err != nil {
		var pe *receptor.PreparationError
		if errors.As(err, &pe) {
			return mcpserver.Error(
				mcpserver.CodePreparationFailed,
				err.Error(),
				hintFor(pe.Stage),
				map[string]string{"stage": string(pe.Stage), "detail": pe.Detail},
			), nil
		}
		return mcpserver.Error(mcpserver.CodePreparationFailed, err.Error(), "", nil), nil
	}

	if result.UsedFallback {
		return mcpserver.Partial("Receptor prepared with the default search box: too few ligand atoms", result), nil
	}
	return mcpserver.OK(fmt.Sprintf("Receptor prepared: %d ligand atoms, center %s, size %s",
		result.LigandAtoms, result.Center, result.Size), result), nil
}

func (p *ReceptorServerPlugin) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.workDir, path)
}

func hintFor(stage receptor.Stage) string {
	switch stage {
	case receptor.StageInput:
		return "Check that the structure file exists and is readable"
	case receptor.StageConversion:
		return "Run detect_tools or set_tool_path for obabel"
	case receptor.StageGeometry:
		return "The structure file could not be parsed as PDB"
	case receptor.StageParameters:
		return "Check that the output directory is writable"
	default:
		return ""
	}
}
