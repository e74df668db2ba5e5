package receptor

import (
	"context"
	"fmt"

	"github.com/alex-galey/docking-mcp/internal/runner"
)

// RigidFlag asks OpenBabel to write a rigid receptor.
const RigidFlag = "-xr"

const converterKey = "obabel"

// Converter turns a structure file into another format.
type Converter interface {
	Convert(ctx context.Context, input, output string, flags ...string) (*runner.Result, error)
}

// PathResolver locates an external tool; *toolchain.Resolver satisfies it.
type PathResolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

type OpenBabel struct {
	resolver PathResolver
	runner   runner.Runner
}

func NewOpenBabel(resolver PathResolver, r runner.Runner) *OpenBabel {
	return &OpenBabel{resolver: resolver, runner: r}
}

func (o *OpenBabel) Convert(ctx context.Context, input, output string, flags ...string) (*runner.Result, error) {
	path, err := o.resolver.Resolve(ctx, converterKey)
	if err != nil {
		return nil, fmt.Errorf("format converter unavailable: %w", err)
	}

	args := append([]string{input, "-O", output}, flags...)
	return o.runner.Run(ctx, runner.Command{Name: path, Args: args})
}
