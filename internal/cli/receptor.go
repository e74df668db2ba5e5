package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReceptorCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receptor",
		Short: "Receptor preparation",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prepare <pdb> [output-dir]",
		Short: "Convert a receptor to PDBQT and write vina.conf",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := "."
			if len(args) > 1 {
				outputDir = args[1]
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Preparing receptor: %s\n", args[0])
			result, err := rt().Receptor.Prepare(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}

			if result.UsedFallback {
				fmt.Fprintln(out, "Warning: no ligand found, using the default search space")
			} else {
				fmt.Fprintf(out, "Found %d ligand atoms\n", result.LigandAtoms)
			}
			fmt.Fprintf(out, "Binding site center: %s\n", result.Center)
			fmt.Fprintf(out, "Box size: %s\n", result.Size)
			fmt.Fprintf(out, "Receptor: %s\n", result.ConvertedPath)
			fmt.Fprintf(out, "Parameters: %s\n", result.ParamFilePath)
			fmt.Fprintln(out, "\nSuccess!")
			return nil
		},
	})
	return cmd
}
