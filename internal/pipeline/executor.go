package pipeline

// Executor runs submitted step actions.
type Executor interface {
	Submit(task func())
}

// GoroutineExecutor runs every task on its own goroutine.
type GoroutineExecutor struct{}

func (GoroutineExecutor) Submit(task func()) { go task() }

// InlineExecutor runs tasks synchronously on the caller's goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Submit(task func()) { task() }
