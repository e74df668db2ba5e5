package runner

import "go.uber.org/fx"

var Module = fx.Module("runner",
	fx.Provide(
		fx.Annotate(
			NewExecRunner,
			fx.As(new(Runner)),
		),
	),
)
