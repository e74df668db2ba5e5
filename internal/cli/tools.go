package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const rule = "=================================================="

func newToolsCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Detect and configure the external docking tools",
	}
	cmd.AddCommand(
		newToolsDetectCmd(rt),
		newToolsPathCmd(rt),
		newToolsSetCmd(rt),
		newToolsVerifyCmd(rt),
	)
	return cmd
}

func newToolsDetectCmd(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Locate every tool and save the paths found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Detecting docking tools...")
			fmt.Fprintln(out, rule)

			detections := r.Tools.ResolveAll(cmd.Context())
			allFound := true
			for _, spec := range r.Tools.Catalog().Specs() {
				d := detections[spec.Key]
				mark, kind := "✗", "optional"
				if d.Found {
					mark = "✓"
				}
				if spec.Required {
					kind = "required"
				}
				fmt.Fprintf(out, "%s %s [%s]\n", mark, spec.DisplayName, kind)
				fmt.Fprintf(out, "  Description: %s\n", spec.Description)
				if d.Found {
					fmt.Fprintf(out, "  Path: %s\n", d.Path)
				} else {
					fmt.Fprintln(out, "  Status: not found")
					allFound = false
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, rule)
			if allFound {
				fmt.Fprintln(out, "All required tools found!")
			} else {
				fmt.Fprintln(out, "Warning: some tools were not found, configure their paths manually")
			}
			fmt.Fprintf(out, "\nConfiguration saved to: %s\n", r.ConfigFile)
			return nil
		},
	}
}

func newToolsPathCmd(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "path <tool>",
		Short: "Print the configured path of a tool, or an empty line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt().Tools.Path(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newToolsSetCmd(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set <tool> <path>",
		Short: "Record an explicit path for a tool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt().Tools.SetPath(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], args[1])
			return nil
		},
	}
}

func newToolsVerifyCmd(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <tool>",
		Short: "Run the configured executable with --version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rt().Tools.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !v.OK {
				return fmt.Errorf("%s: %s", args[0], v.Detail)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			if detail := strings.TrimSpace(v.Detail); detail != "" {
				fmt.Fprintln(cmd.OutOrStdout(), detail)
			}
			return nil
		},
	}
}
