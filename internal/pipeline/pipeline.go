package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/carledger/internal/model"
)

// Step is one stage of item processing.
type Step interface {
	// Do inspects or enriches the candidate. Returning a *SkipError rejects
	// the item; any other error is treated as a failure of the item.
	Do(ctx context.Context, c *model.Candidate) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order and stops at the first error.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps on c. Cancellation is checked before each step.
func (p *Pipeline) Execute(ctx context.Context, c *model.Candidate) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, c); err != nil {
			p.logger.Debug("step rejected item",
				"step", step.Name(),
				"url", c.Page.URL,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
