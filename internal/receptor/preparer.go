package receptor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alex-galey/docking-mcp/internal/structure"
	"github.com/alex-galey/docking-mcp/internal/vina"
)

type Options struct {
	Padding        float64
	Exhaustiveness int
	NumModes       int
	EnergyRange    int
}

func DefaultOptions() Options {
	return Options{
		Padding:        structure.DefaultPadding,
		Exhaustiveness: vina.DefaultExhaustiveness,
		NumModes:       vina.DefaultNumModes,
		EnergyRange:    vina.DefaultEnergyRange,
	}
}

type Result struct {
	ConvertedPath string           `json:"converted_path"`
	ParamFilePath string           `json:"param_file_path"`
	Center        structure.Point3 `json:"center"`
	Size          structure.Box3   `json:"size"`
	LigandAtoms   int              `json:"ligand_atoms"`
	UsedFallback  bool             `json:"used_fallback"`
}

// Preparer converts a receptor structure and writes the docking parameters
// for the binding site found in it.
type Preparer struct {
	converter Converter
	logger    *slog.Logger
	opts      Options
}

func NewPreparer(converter Converter, logger *slog.Logger, opts Options) *Preparer {
	return &Preparer{converter: converter, logger: logger, opts: opts}
}

func (p *Preparer) Prepare(ctx context.Context, structureFile, outputDir string) (*Result, error) {
	info, err := os.Stat(structureFile)
	if err != nil {
		return nil, &PreparationError{Stage: StageInput, Detail: "missing file", Err: err}
	}
	if info.IsDir() {
		return nil, &PreparationError{Stage: StageInput, Detail: "structure path is a directory"}
	}

	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &PreparationError{Stage: StageInput, Detail: "cannot create output directory", Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(structureFile), filepath.Ext(structureFile))
	converted := filepath.Join(outputDir, base+".pdbqt")
	paramFile := filepath.Join(outputDir, vina.FileName)

	p.logger.Info("Preparing receptor",
		"structure", structureFile,
		"output_dir", outputDir)

	if _, err := p.converter.Convert(ctx, structureFile, converted, RigidFlag); err != nil {
		return nil, &PreparationError{Stage: StageConversion, Detail: "format conversion failed", Err: err}
	}
	p.logger.Info("Receptor converted", "output", converted)

	// Geometry comes from the original structure; the converted file may
	// drop heteroatoms.
	atoms, err := structure.ExtractLigandAtoms(structureFile)
	if err != nil {
		return nil, &PreparationError{Stage: StageGeometry, Detail: "cannot read structure", Err: err}
	}

	center, size, fallback := structure.SearchSpace(atoms, p.opts.Padding)
	if fallback {
		p.logger.Warn("Too few ligand atoms for a search box, using default size",
			"ligand_atoms", len(atoms),
			"structure", structureFile,
			"center", center.String(),
			"size", size.String())
	} else {
		p.logger.Info("Binding site located",
			"ligand_atoms", len(atoms),
			"center", center.String(),
			"size", size.String())
	}

	params := vina.Parameters{
		Receptor:       converted,
		Center:         center,
		Size:           size,
		Exhaustiveness: p.opts.Exhaustiveness,
		NumModes:       p.opts.NumModes,
		EnergyRange:    p.opts.EnergyRange,
	}
	if err := vina.Write(paramFile, params); err != nil {
		return nil, &PreparationError{Stage: StageParameters, Detail: "cannot write parameter file", Err: err}
	}
	p.logger.Info("Docking parameters written", "file", paramFile)

	return &Result{
		ConvertedPath: converted,
		ParamFilePath: paramFile,
		Center:        center,
		Size:          size,
		LigandAtoms:   len(atoms),
		UsedFallback:  fallback,
	}, nil
}
