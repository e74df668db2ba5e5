package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
)

func newPipelineCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Drive the six-step docking pipeline",
	}
	cmd.AddCommand(newPipelineStepsCmd(), newPipelineRunCmd(rt))
	return cmd
}

func newPipelineStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the pipeline steps",
		Args:  cobra.NoArgs,
		// The step list needs no services.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, step := range pipeline.Steps() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %-22s %s\n", int(step), step.String(), step.Description())
			}
			return nil
		},
	}
}

func newPipelineRunCmd(rt func() *Runtime) *cobra.Command {
	var (
		from, to      string
		structureFile string
		ligandFile    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run steps in order, stopping at the first failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := pipeline.ParseStep(from)
			if err != nil {
				return err
			}
			last, err := pipeline.ParseStep(to)
			if err != nil {
				return err
			}
			if first > last {
				return fmt.Errorf("--from %s comes after --to %s", first, last)
			}

			ctrl := rt().Pipeline
			if structureFile != "" {
				if err := ctrl.SetInput(pipeline.ReceptorPrep, pipeline.InputStructureFile, structureFile); err != nil {
					return err
				}
			}
			if ligandFile != "" {
				if err := ctrl.SetInput(pipeline.LigandPrep, pipeline.InputLigandFile, ligandFile); err != nil {
					return err
				}
			}

			for ctrl.CurrentStep() < first {
				ctrl.Advance()
			}

			out := cmd.OutOrStdout()
			for {
				step := ctrl.CurrentStep()
				fmt.Fprintf(out, "== Step %d: %s\n", int(step), step.Description())

				exec := ctrl.ExecuteCurrentStep(cmd.Context(), pipeline.WithProgress(func(line string) {
					fmt.Fprintf(out, "  %s\n", line)
				}))
				outcome := exec.Wait()
				if !outcome.Success {
					return fmt.Errorf("step %d (%s) failed: %s", int(step), step, outcome.Error)
				}
				if step >= last {
					return nil
				}
				ctrl.Advance()
			}
		},
	}

	cmd.Flags().StringVar(&from, "from", pipeline.FirstStep.String(), "first step to run (number or name)")
	cmd.Flags().StringVar(&to, "to", pipeline.LastStep.String(), "last step to run (number or name)")
	cmd.Flags().StringVar(&structureFile, "structure", "", "receptor PDB file for step 2")
	cmd.Flags().StringVar(&ligandFile, "ligands", "", "SMILES file for step 3")
	return cmd
}
