// Package startup runs the ordered container startup sequence: dependency
// waits, migrations, static collection, seeding and the final server handoff.
package startup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listings/utils"
)

// Step is one named unit of the startup sequence
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports which step failed and the exit code the process should use
type StepError struct {
	Step string
	Err  error
	Code int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("startup step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err: 0 for nil, the StepError
// code when there is one, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Code != 0 {
		return stepErr.Code
	}
	return 1
}

// Pipeline runs steps strictly in order and stops at the first failure
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline of steps
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the step names in execution order
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step. A failing step returns a *StepError and no later step runs.
func (p *Pipeline) Run(ctx context.Context) error {
	total := time.Now()
	for i, step := range p.steps {
		utils.LogInfo("Starting step", "step", step.Name, "position", fmt.Sprintf("%d/%d", i+1, len(p.steps)))

		start := time.Now()
		err := step.Run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			utils.LogError("Startup step failed", err, "step", step.Name, "duration", elapsed)
			return &StepError{Step: step.Name, Err: err, Code: 1}
		}
		utils.LogInfo("Step completed", "step", step.Name, "duration", elapsed.Round(time.Millisecond))
	}
	utils.LogInfo("Startup sequence completed", "duration", time.Since(total).Round(time.Millisecond))
	return nil
}
