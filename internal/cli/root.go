package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/pkg/config"
	"github.com/alex-galey/docking-mcp/pkg/fxapp"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	WorkDir    string
}

// ToolService is what the tools commands need from *toolchain.Resolver.
type ToolService interface {
	Catalog() *toolchain.Catalog
	ResolveAll(ctx context.Context) map[string]toolchain.Detection
	Path(key string) (string, error)
	SetPath(key, path string) error
	Verify(ctx context.Context, key string) (toolchain.Verification, error)
}

type ReceptorService interface {
	Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error)
}

type PipelineService interface {
	CurrentStep() pipeline.Step
	Advance() pipeline.Step
	SetInput(step pipeline.Step, key, value string) error
	ExecuteCurrentStep(ctx context.Context, opts ...pipeline.ExecuteOption) *pipeline.Execution
}

// Runtime carries the initialized services through the command tree.
type Runtime struct {
	Config     *config.ServerConfig
	ConfigFile string
	Tools      ToolService
	Receptor   ReceptorService
	Pipeline   PipelineService

	stop func(ctx context.Context) error
}

// Close releases whatever the builder started.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil || r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}

// Builder creates the Runtime once flags are parsed.
type Builder func(ctx context.Context, opts RootOptions) (*Runtime, error)

const closeTimeout = 15 * time.Second

// session holds the Runtime built for the running command.
type session struct {
	rt *Runtime
}

func (s *session) runtime() *Runtime { return s.rt }

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.rt.Close(ctx)
}

// NewRootCommand creates the dockctl command tree. A nil builder wires the
// real services through fx.
func NewRootCommand(build Builder) *cobra.Command {
	cmd, _ := newRootCommand(build)
	return cmd
}

func newRootCommand(build Builder) (*cobra.Command, *session) {
	if build == nil {
		build = DefaultBuilder
	}
	opts := RootOptions{}
	s := &session{}

	cmd := &cobra.Command{
		Use:     "dockctl",
		Short:   "Molecular docking workflow from the command line",
		Long:    "dockctl detects the docking tools, prepares receptors and drives the six-step\ndocking pipeline without an MCP client.",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			s.rt = rt
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.WorkDir, "work-dir", "", "work directory for pipeline artifacts (overrides work_dir)")

	cmd.AddCommand(
		newToolsCmd(s.runtime),
		newReceptorCmd(s.runtime),
		newPipelineCmd(s.runtime),
	)
	return cmd, s
}

// DefaultBuilder loads the configuration and populates the services from
// the same fx graph the MCP server uses, minus the transport.
func DefaultBuilder(ctx context.Context, opts RootOptions) (*Runtime, error) {
	var (
		cfg *config.ServerConfig
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadConfigFile(opts.ConfigPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.WorkDir != "" {
		cfg.WorkDir = opts.WorkDir
	}
	cfg.LogFormat = "text"

	var (
		resolver   *toolchain.Resolver
		preparer   *receptor.Preparer
		controller *pipeline.Controller
	)
	app := fx.New(
		fx.NopLogger,
		fxapp.Core(cfg),
		fx.Populate(&resolver, &preparer, &controller),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	return &Runtime{
		Config:     cfg,
		ConfigFile: toolchain.ConfigFilePath(cfg),
		Tools:      resolver,
		Receptor:   preparer,
		Pipeline:   controller,
		stop:       app.Stop,
	}, nil
}

// Execute runs the root command and stops the services it started.
func Execute(ctx context.Context) error {
	cmd, s := newRootCommand(nil)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, s.close())
}
