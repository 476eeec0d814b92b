package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// sagaStep is one forward action with the action that undoes it
type sagaStep struct {
	name       string
	action     func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs steps in order; when step n fails, compensations n-1..1 run in reverse.
// Compensations use a context detached from the caller's cancellation so an
// abandoned request still gives its stock back.
type saga struct {
	name          string
	steps         []sagaStep
	timeout       time.Duration
	onCompensated func(ok bool)
}

func (s *saga) add(step sagaStep) {
	s.steps = append(s.steps, step)
}

func (s *saga) run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, i, fmt.Errorf("%s cancelled before %s: %w", s.name, step.name, err))
		}
		if err := step.action(ctx); err != nil {
			return s.abort(ctx, i, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return nil
}

// abort compensates the steps before failed and joins every failure into one error
func (s *saga) abort(ctx context.Context, failed int, cause error) error {
	if failed == 0 {
		return cause
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	errs := []error{cause}
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.compensate == nil {
			continue
		}
		err := step.compensate(cctx)
		if s.onCompensated != nil {
			s.onCompensated(err == nil)
		}
		if err != nil {
			log.Printf("[Saga] %s: compensation for %s failed: %v", s.name, step.name, err)
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.name, err))
			continue
		}
		log.Printf("[Saga] %s: compensated %s", s.name, step.name)
	}
	return errors.Join(errs...)
}
