// Package pipeline runs load steps in order and stops at the first failure.
//
// A step that already finished keeps whatever it committed; there is no
// compensation for earlier steps when a later one fails.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"jsonload/internal/metrics"
)

// Error is the error class for pipeline misuse.
var Error = errs.Class("pipeline")

// Step is one unit of a pipeline. Run applies it; Validate exercises the
// same statements without committing anything.
type Step interface {
	Run(ctx context.Context) error
	Validate(ctx context.Context) error
}

// Pipeline is an ordered, append-only sequence of steps.
type Pipeline struct {
	log   *zap.Logger
	job   string
	steps []Step
}

// New returns an empty pipeline for job.
func New(log *zap.Logger, job string) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log.Named("pipeline").With(zap.String("job", job)), job: job}
}

// Append adds fully constructed steps to the end of the pipeline.
func (p *Pipeline) Append(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Len is the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Run runs every step in order.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.each(ctx, "run", Step.Run)
}

// Validate validates every step in order.
func (p *Pipeline) Validate(ctx context.Context) error {
	return p.each(ctx, "validate", Step.Validate)
}

func (p *Pipeline) each(ctx context.Context, mode string, fn func(Step, context.Context) error) error {
	if len(p.steps) == 0 {
		return Error.New("cannot run pipeline with no steps")
	}
	for i, step := range p.steps {
		name := stepName(step, i)
		log := p.log.With(zap.String("step", name), zap.String("mode", mode))

		log.Info("step started")
		start := time.Now()
		err := fn(step, ctx)
		elapsed := time.Since(start)
		metrics.RecordStep(p.job, name, mode, err, elapsed)

		if err != nil {
			log.Error("step failed", zap.Duration("elapsed", elapsed), zap.Error(err))
			return fmt.Errorf("step %d %s: %w", i, name, err)
		}
		log.Info("step finished", zap.Duration("elapsed", elapsed))
	}
	return nil
}

func stepName(step Step, i int) string {
	if s, ok := step.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("step%d", i)
}
