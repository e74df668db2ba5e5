package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
)

// ToolService is the part of *toolchain.Resolver the tool setup step uses.
type ToolService interface {
	Catalog() *toolchain.Catalog
	Resolve(ctx context.Context, key string) (string, error)
	SetPath(key, path string) error
	Verify(ctx context.Context, key string) (toolchain.Verification, error)
}

// ReceptorService prepares receptor artifacts; *receptor.Preparer satisfies it.
type ReceptorService interface {
	Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error)
}

// Commands holds the argv of the external programs run by steps 4 to 6.
type Commands struct {
	LigandConvert []string
	FormatConvert []string
	Docking       []string
}

const tracerName = "github.com/alex-galey/docking-mcp/internal/pipeline"

// DefaultMaxExecutions is how many executions a controller remembers.
const DefaultMaxExecutions = 64

type Dependencies struct {
	Tools    ToolService
	Receptor ReceptorService
	Runner   runner.Runner
	Executor Executor
	Logger   *slog.Logger
	Metrics  metrics.Collector
	// Tracer defaults to the global provider's tracer.
	Tracer   trace.Tracer
	WorkDir  string
	Commands Commands
	// MaxExecutions caps the executions kept for lookup. Zero means
	// DefaultMaxExecutions. Running executions are never dropped.
	MaxExecutions int
}

// Controller walks the six docking steps. Navigation is synchronous; step
// execution is handed to the Executor and never moves the current step.
type Controller struct {
	mu         sync.RWMutex
	current    Step
	inputs     map[Step]map[string]string
	completed  map[Step]bool
	last       map[Step]Outcome
	executions map[string]*Execution
	// history holds execution IDs oldest first.
	history       []string
	maxExecutions int

	tools    ToolService
	receptor ReceptorService
	runner   runner.Runner
	executor Executor
	logger   *slog.Logger
	metrics  metrics.Collector
	tracer   trace.Tracer
	workDir  string
	commands Commands

	// ctx is cancelled by Close to stop running external programs.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(deps Dependencies) *Controller {
	executor := deps.Executor
	if executor == nil {
		executor = GoroutineExecutor{}
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	workDir := deps.WorkDir
	if workDir == "" {
		workDir = "."
	}
	maxExecutions := deps.MaxExecutions
	if maxExecutions <= 0 {
		maxExecutions = DefaultMaxExecutions
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		current:       FirstStep,
		inputs:        make(map[Step]map[string]string),
		completed:     make(map[Step]bool),
		last:          make(map[Step]Outcome),
		executions:    make(map[string]*Execution),
		maxExecutions: maxExecutions,
		tools:         deps.Tools,
		receptor:      deps.Receptor,
		runner:        deps.Runner,
		executor:      executor,
		logger:        deps.Logger,
		metrics:       collector,
		tracer:        tracer,
		workDir:       workDir,
		commands:      deps.Commands,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (c *Controller) WorkDir() string { return c.workDir }

// CurrentStep returns the step the controller is positioned on.
func (c *Controller) CurrentStep() Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves to the next step; it is a no-op on the last step.
func (c *Controller) Advance() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < LastStep {
		c.current++
	}
	return c.current
}

// Retreat moves to the previous step; it is a no-op on the first step.
func (c *Controller) Retreat() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current > FirstStep {
		c.current--
	}
	return c.current
}

// SetInput records a user input for step. An empty value clears it.
func (c *Controller) SetInput(step Step, key, value string) error {
	if !step.Valid() {
		return fmt.Errorf("invalid step: %d", int(step))
	}
	if key == "" {
		return fmt.Errorf("input key cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.inputs[step], key)
		return nil
	}
	if c.inputs[step] == nil {
		c.inputs[step] = make(map[string]string)
	}
	c.inputs[step][key] = value
	return nil
}

// Input returns a recorded input value.
func (c *Controller) Input(step Step, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inputs[step][key]
}

// ExecuteCurrentStep starts the current step and returns immediately.
// The execution is detached from ctx cancellation; Close stops it.
func (c *Controller) ExecuteCurrentStep(ctx context.Context, opts ...ExecuteOption) *Execution {
	c.mu.Lock()
	step := c.current
	inputs := make(map[string]string, len(c.inputs[step]))
	for k, v := range c.inputs[step] {
		inputs[k] = v
	}
	exec := newExecution(step, opts...)
	c.executions[exec.ID] = exec
	c.history = append(c.history, exec.ID)
	c.pruneLocked()
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)

	c.logger.Info("Executing pipeline step",
		"step", step.String(),
		"execution_id", exec.ID)

	c.executor.Submit(func() {
		defer cancel()
		defer stop()
		defer exec.close()
		c.run(runCtx, exec, inputs)
	})
	return exec
}

func (c *Controller) run(ctx context.Context, exec *Execution, inputs map[string]string) {
	ctx, span := c.tracer.Start(ctx, "pipeline.step", trace.WithAttributes(
		attribute.Int("docking.step", int(exec.Step)),
		attribute.String("docking.step_name", exec.Step.String()),
		attribute.String("docking.execution_id", exec.ID),
	))
	defer span.End()

	err := c.invoke(ctx, exec, inputs)
	if err == nil {
		exec.log(fmt.Sprintf("Step %d completed", int(exec.Step)))
		span.SetStatus(codes.Ok, "")
	} else {
		exec.log(fmt.Sprintf("error: %v", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	outcome := exec.finish(err)

	c.mu.Lock()
	c.last[exec.Step] = outcome
	if outcome.Success {
		c.completed[exec.Step] = true
	}
	c.mu.Unlock()

	c.metrics.RecordStepExecution(ctx, exec.Step.String(), outcome.Duration, outcome.Success)
	if outcome.Success {
		c.logger.Info("Pipeline step completed",
			"step", exec.Step.String(),
			"execution_id", exec.ID,
			"duration", outcome.Duration)
	} else {
		c.logger.Error("Pipeline step failed",
			"step", exec.Step.String(),
			"execution_id", exec.ID,
			"error", err)
	}
}

// pruneLocked forgets the oldest finished executions beyond the cap.
func (c *Controller) pruneLocked() {
	excess := len(c.executions) - c.maxExecutions
	if excess <= 0 {
		return
	}
	kept := c.history[:0]
	for _, id := range c.history {
		if excess > 0 && !c.executions[id].Running() {
			delete(c.executions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.history = kept
}

func (c *Controller) invoke(ctx context.Context, exec *Execution, inputs map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepPanicError{Step: exec.Step, Value: r}
		}
	}()

	action := c.action(exec.Step)
	if action == nil {
		return fmt.Errorf("no action for step %d", int(exec.Step))
	}
	return action(ctx, exec, inputs)
}

// Execution looks up an execution started by this controller.
func (c *Controller) Execution(id string) (*Execution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exec, ok := c.executions[id]
	return exec, ok
}

// StepState is the snapshot of one step.
type StepState struct {
	Step        Step              `json:"step"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Completed   bool              `json:"completed"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	LastOutcome *Outcome          `json:"last_outcome,omitempty"`
}

type State struct {
	Current           Step        `json:"current"`
	CurrentName       string      `json:"current_name"`
	WorkDir           string      `json:"work_dir"`
	Steps             []StepState `json:"steps"`
	RunningExecutions []string    `json:"running_executions,omitempty"`
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := State{
		Current:     c.current,
		CurrentName: c.current.String(),
		WorkDir:     c.workDir,
		Steps:       make([]StepState, 0, int(LastStep)),
	}
	for _, step := range Steps() {
		s := StepState{
			Step:        step,
			Name:        step.String(),
			Description: step.Description(),
			Completed:   c.completed[step],
		}
		if len(c.inputs[step]) > 0 {
			s.Inputs = make(map[string]string, len(c.inputs[step]))
			for k, v := range c.inputs[step] {
				s.Inputs[k] = v
			}
		}
		if outcome, ok := c.last[step]; ok {
			o := outcome
			s.LastOutcome = &o
		}
		state.Steps = append(state.Steps, s)
	}
	for id, exec := range c.executions {
		if exec.Running() {
			state.RunningExecutions = append(state.RunningExecutions, id)
		}
	}
	return state
}

// Close cancels external programs started by running executions.
func (c *Controller) Close() {
	c.cancel()
}

// WaitIdle blocks until no execution is running or timeout elapses.
func (c *Controller) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		c.mu.RLock()
		var pending *Execution
		for _, exec := range c.executions {
			if exec.Running() {
				pending = exec
				break
			}
		}
		c.mu.RUnlock()

		if pending == nil {
			return true
		}
		select {
		case <-pending.Done():
		case <-deadline:
			return false
		}
	}
}
