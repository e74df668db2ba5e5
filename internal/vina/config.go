package vina

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alex-galey/docking-mcp/internal/structure"
)

const (
	DefaultExhaustiveness = 8
	DefaultNumModes       = 9
	DefaultEnergyRange    = 3

	// FileName is the parameter file name the docking step expects.
	FileName = "vina.conf"
)

// Parameters is the content of a docking engine parameter file.
type Parameters struct {
	Receptor       string           `json:"receptor"`
	Center         structure.Point3 `json:"center"`
	Size           structure.Box3   `json:"size"`
	Exhaustiveness int              `json:"exhaustiveness"`
	NumModes       int              `json:"num_modes"`
	EnergyRange    int              `json:"energy_range"`
}

func DefaultParameters(receptor string, center structure.Point3, size structure.Box3) Parameters {
	return Parameters{
		Receptor:       receptor,
		Center:         center,
		Size:           size,
		Exhaustiveness: DefaultExhaustiveness,
		NumModes:       DefaultNumModes,
		EnergyRange:    DefaultEnergyRange,
	}
}

// Render produces the canonical parameter file text.
func Render(p Parameters) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "receptor = %s\n", p.Receptor)
	b.WriteString("\n")
	fmt.Fprintf(&b, "center_x = %.3f\n", p.Center.X)
	fmt.Fprintf(&b, "center_y = %.3f\n", p.Center.Y)
	fmt.Fprintf(&b, "center_z = %.3f\n", p.Center.Z)
	b.WriteString("\n")
	fmt.Fprintf(&b, "size_x = %.3f\n", p.Size.X)
	fmt.Fprintf(&b, "size_y = %.3f\n", p.Size.Y)
	fmt.Fprintf(&b, "size_z = %.3f\n", p.Size.Z)
	b.WriteString("\n")
	fmt.Fprintf(&b, "exhaustiveness = %d\n", p.Exhaustiveness)
	fmt.Fprintf(&b, "num_modes = %d\n", p.NumModes)
	fmt.Fprintf(&b, "energy_range = %d\n", p.EnergyRange)
	return b.Bytes()
}

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Write replaces path with the rendered parameters.
func Write(path string, p Parameters) error {
	if err := os.WriteFile(path, Render(p), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Parse reads "key = value" lines. Comments and unknown keys are skipped.
func Parse(r io.Reader) (Parameters, error) {
	var p Parameters
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Parameters{}, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "receptor":
			p.Receptor = value
		case "center_x":
			p.Center.X, err = strconv.ParseFloat(value, 64)
		case "center_y":
			p.Center.Y, err = strconv.ParseFloat(value, 64)
		case "center_z":
			p.Center.Z, err = strconv.ParseFloat(value, 64)
		case "size_x":
			p.Size.X, err = strconv.ParseFloat(value, 64)
		case "size_y":
			p.Size.Y, err = strconv.ParseFloat(value, 64)
		case "size_z":
			p.Size.Z, err = strconv.ParseFloat(value, 64)
		case "exhaustiveness":
			p.Exhaustiveness, err = strconv.Atoi(value)
		case "num_modes":
			p.NumModes, err = strconv.Atoi(value)
		case "energy_range":
			p.EnergyRange, err = strconv.Atoi(value)
		}
		if err != nil {
			return Parameters{}, fmt.Errorf("line %d: invalid %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func ReadFile(path string) (Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parameters{}, err
	}
	defer f.Close()
	return Parse(f)
}
