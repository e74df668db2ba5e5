package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is a 1-based position in the docking workflow.
type Step int

const (
	ToolSetup Step = iota + 1
	ReceptorPrep
	LigandPrep
	StructureConversion
	FormatConversion
	Docking
)

const (
	FirstStep = ToolSetup
	LastStep  = Docking
)

var stepNames = map[Step]string{
	ToolSetup:           "tool_setup",
	ReceptorPrep:        "receptor_prep",
	LigandPrep:          "ligand_prep",
	StructureConversion: "structure_conversion",
	FormatConversion:    "format_conversion",
	Docking:             "docking",
}

var stepDescriptions = map[Step]string{
	ToolSetup:           "Detect and configure tools",
	ReceptorPrep:        "Prepare receptor (PDB)",
	LigandPrep:          "Prepare ligands (SMILES)",
	StructureConversion: "Convert ligands to SDF",
	FormatConversion:    "Convert ligands to PDBQT",
	Docking:             "Run docking",
}

// Steps lists every step in execution order.
func Steps() []Step {
	return []Step{ToolSetup, ReceptorPrep, LigandPrep, StructureConversion, FormatConversion, Docking}
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step_%d", int(s))
}

func (s Step) Description() string {
	return stepDescriptions[s]
}

// ParseStep accepts a step number ("3") or name ("ligand_prep").
func ParseStep(value string) (Step, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if n, err := strconv.Atoi(value); err == nil {
		if s := Step(n); s.Valid() {
			return s, nil
		}
		return 0, fmt.Errorf("step %d out of range %d-%d", n, FirstStep, LastStep)
	}
	for s, name := range stepNames {
		if name == value {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step: %q", value)
}

// Input keys recorded with SetInput. ToolSetup takes tool keys directly.
const (
	InputStructureFile = "structure_file"
	InputLigandFile    = "ligand_file"
)

// Work directory conventions shared with the external step commands.
const (
	LigandFileName = "ligands.smi"
	SDFDir         = "sdf"
	PDBQTDir       = "pdbqt"
)
