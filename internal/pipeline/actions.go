package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/internal/vina"
)

type actionFunc func(ctx context.Context, exec *Execution, inputs map[string]string) error

func (c *Controller) action(step Step) actionFunc {
	switch step {
	case ToolSetup:
		return c.setupTools
	case ReceptorPrep:
		return c.prepareReceptor
	case LigandPrep:
		return c.prepareLigands
	case StructureConversion:
		return c.convertStructures
	case FormatConversion:
		return c.convertFormats
	case Docking:
		return c.dock
	}
	return nil
}

func (c *Controller) setupTools(ctx context.Context, exec *Execution, inputs map[string]string) error {
	exec.log("Verifying tool configuration...")

	var missing []string
	for _, spec := range c.tools.Catalog().Specs() {
		path, err := c.locateTool(ctx, spec, inputs[spec.Key])
		if err != nil {
			if spec.Required {
				exec.log(fmt.Sprintf("%s: %v", spec.DisplayName, err))
				missing = append(missing, spec.DisplayName)
			} else {
				exec.log(fmt.Sprintf("warning: optional tool %s unavailable: %v", spec.DisplayName, err))
			}
			continue
		}
		exec.log(fmt.Sprintf("%s: %s", spec.DisplayName, path))

		verification, err := c.tools.Verify(ctx, spec.Key)
		if err != nil {
			return err
		}
		if !verification.OK {
			exec.log(fmt.Sprintf("warning: %s did not answer --version: %s", spec.DisplayName, verification.Detail))
			c.logger.Warn("Tool verification failed",
				"tool", spec.Key,
				"path", path,
				"detail", verification.Detail)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("required tools not configured: %s", strings.Join(missing, ", "))
	}
	exec.log("All tools configured")
	return nil
}

// locateTool prefers a user supplied path and otherwise runs discovery.
func (c *Controller) locateTool(ctx context.Context, spec toolchain.ToolSpec, supplied string) (string, error) {
	if supplied != "" {
		if err := c.tools.SetPath(spec.Key, supplied); err != nil {
			return "", err
		}
		return supplied, nil
	}
	return c.tools.Resolve(ctx, spec.Key)
}

func (c *Controller) prepareReceptor(ctx context.Context, exec *Execution, inputs map[string]string) error {
	file := inputs[InputStructureFile]
	if file == "" {
		return &MissingInputError{Step: ReceptorPrep, Input: InputStructureFile}
	}
	exec.log(fmt.Sprintf("Checking structure file: %s", file))
	if !exists(file) {
		return &MissingArtifactError{Step: ReceptorPrep, Path: file}
	}

	result, err := c.receptor.Prepare(ctx, file, c.workDir)
	if err != nil {
		return err
	}

	if result.UsedFallback {
		exec.log("warning: no ligand found, using the default search space")
	} else {
		exec.log(fmt.Sprintf("Found %d ligand atoms", result.LigandAtoms))
	}
	exec.log(fmt.Sprintf("Binding site center: %s", result.Center))
	exec.log(fmt.Sprintf("Box size: %s", result.Size))
	exec.log(fmt.Sprintf("Receptor: %s", result.ConvertedPath))
	exec.log(fmt.Sprintf("Parameters: %s", result.ParamFilePath))
	return nil
}

func (c *Controller) prepareLigands(ctx context.Context, exec *Execution, inputs map[string]string) error {
	file := inputs[InputLigandFile]
	if file == "" {
		return &MissingInputError{Step: LigandPrep, Input: InputLigandFile}
	}
	exec.log(fmt.Sprintf("Checking ligand file: %s", file))
	if !exists(file) {
		return &MissingArtifactError{Step: LigandPrep, Path: file}
	}

	count, err := countDescriptors(file)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", file, ErrNoLigands)
	}

	target := c.artifact(LigandFileName)
	if !samePath(file, target) {
		if err := copyFile(file, target); err != nil {
			return fmt.Errorf("failed to stage ligand file: %w", err)
		}
		exec.log(fmt.Sprintf("Copied to %s", target))
	}
	exec.log(fmt.Sprintf("%d ligand descriptors ready", count))
	return nil
}

func (c *Controller) convertStructures(ctx context.Context, exec *Execution, inputs map[string]string) error {
	if err := c.require(StructureConversion, LigandFileName, "complete step 3 first"); err != nil {
		return err
	}
	return c.runCommand(ctx, exec, c.commands.LigandConvert)
}

func (c *Controller) convertFormats(ctx context.Context, exec *Execution, inputs map[string]string) error {
	if err := c.require(FormatConversion, SDFDir, "complete step 4 first"); err != nil {
		return err
	}
	return c.runCommand(ctx, exec, c.commands.FormatConvert)
}

func (c *Controller) dock(ctx context.Context, exec *Execution, inputs map[string]string) error {
	if err := c.require(Docking, vina.FileName, "complete step 2 first"); err != nil {
		return err
	}
	if err := c.require(Docking, PDBQTDir, "complete step 5 first"); err != nil {
		return err
	}

	params, err := vina.ReadFile(c.artifact(vina.FileName))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", vina.FileName, err)
	}
	if params.Receptor == "" {
		return fmt.Errorf("%s does not name a receptor", vina.FileName)
	}
	return c.runCommand(ctx, exec, c.commands.Docking)
}

// runCommand runs argv in the work directory and streams its output into
// the execution. Standard error lines are reported as warnings.
func (c *Controller) runCommand(ctx context.Context, exec *Execution, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s: no command configured", exec.Step)
	}
	exec.log(fmt.Sprintf("Running %s", strings.Join(argv, " ")))

	_, err := c.runner.Run(ctx, runner.Command{
		Name: argv[0],
		Args: argv[1:],
		Dir:  c.workDir,
		OnLine: func(stream runner.Stream, line string) {
			if stream == runner.Stderr {
				exec.log("warning: " + line)
				c.logger.Warn("Step command warning",
					"step", exec.Step.String(),
					"line", line)
				return
			}
			exec.log(line)
		},
	})
	return err
}

func (c *Controller) artifact(name string) string {
	return filepath.Join(c.workDir, name)
}

func (c *Controller) require(step Step, name, hint string) error {
	path := c.artifact(name)
	if !exists(path) {
		return &MissingArtifactError{Step: step, Path: path, Hint: hint}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

func countDescriptors(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
