// Package wizard holds the multi-step form flows of the dashboard: the typed form
// state of each step, the pure per-step validators and the step controller that
// gates navigation on them.
package wizard

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrStepIncomplete = errors.New("step is incomplete")
	ErrInvalidStep    = errors.New("step out of range")
	ErrAtFirstStep    = errors.New("already at the first step")
	ErrAtLastStep     = errors.New("already at the last step")
)

// Flow is a linear sequence of steps numbered from 1, each with a validator
type Flow interface {
	StepCount() int
	StepName(step int) string
	Validate(step int) FieldErrors
}

// SubmitFunc forwards a completed step before the controller advances past it
type SubmitFunc func(step int) error

// Controller tracks the current step of a flow
type Controller struct {
	flow    Flow
	current int
	errors  FieldErrors
}

// NewController starts a flow at step 1
func NewController(flow Flow) *Controller {
	return &Controller{flow: flow, current: 1, errors: FieldErrors{}}
}

// Restore rebuilds a controller from a saved step number, clamped to the flow
func Restore(flow Flow, current int, errs FieldErrors) *Controller {
	c := NewController(flow)
	if current >= 1 && current <= flow.StepCount() {
		c.current = current
	}
	if errs != nil {
		c.errors = errs
	}
	return c
}

// Current returns the current step number
func (c *Controller) Current() int {
	return c.current
}

// Errors returns the field errors of the last failed navigation
func (c *Controller) Errors() FieldErrors {
	return c.errors
}

// StepComplete reports whether step passes its validator
func (c *Controller) StepComplete(step int) bool {
	return c.flow.Validate(step).Valid()
}

// Next advances one step if the current step validates
func (c *Controller) Next() error {
	return c.NextWith(nil)
}

// NextWith validates every step up to the current one, runs submit for each
// of them in order and advances only if all succeed. An earlier step that no
// longer validates becomes the current step. On the last step it submits but
// stays put.
func (c *Controller) NextWith(submit SubmitFunc) error {
	if submit == nil && c.current == c.flow.StepCount() {
		if err := c.check(c.current, c.current); err != nil {
			return err
		}
		return ErrAtLastStep
	}
	if err := c.forward(c.current, submit); err != nil {
		return err
	}
	if c.current < c.flow.StepCount() {
		c.current++
	}
	return nil
}

// check validates steps from..to and stops on the first incomplete one,
// moving back to it when it lies behind the current step
func (c *Controller) check(from, to int) error {
	for s := from; s <= to; s++ {
		if errs := c.flow.Validate(s); !errs.Valid() {
			c.errors = errs
			if s < c.current {
				c.current = s
			}
			return errors.Wrapf(ErrStepIncomplete, "step %d", s)
		}
	}
	c.errors = FieldErrors{}
	return nil
}

// forward validates and submits steps 1..to. Steps before the current one are
// included so edits made after leaving them still reach submit; submit decides
// which of them need sending. A failed submission becomes the current step.
func (c *Controller) forward(to int, submit SubmitFunc) error {
	from := c.current
	if submit != nil {
		from = 1
	}
	if err := c.check(from, to); err != nil {
		return err
	}
	if submit == nil {
		return nil
	}
	for s := 1; s <= to; s++ {
		if err := submit(s); err != nil {
			c.current = s
			return err
		}
	}
	return nil
}

// Previous moves back one step without validation
func (c *Controller) Previous() error {
	if c.current == 1 {
		return ErrAtFirstStep
	}
	c.current--
	c.errors = FieldErrors{}
	return nil
}

// JumpTo moves to step. Backward jumps are always allowed; forward jumps need
// every step from the current one up to step-1 to validate.
func (c *Controller) JumpTo(step int) error {
	return c.JumpToWith(step, nil)
}

// JumpToWith is JumpTo that also runs submit for every step before step,
// including edited steps behind the current one. All of them are validated
// before any is submitted; if a submission fails the controller stops on that
// step.
func (c *Controller) JumpToWith(step int, submit SubmitFunc) error {
	if step < 1 || step > c.flow.StepCount() {
		return errors.Wrapf(ErrInvalidStep, "step %d", step)
	}
	if step <= c.current {
		c.current = step
		c.errors = FieldErrors{}
		return nil
	}
	if err := c.forward(step-1, submit); err != nil {
		return err
	}
	c.current = step
	return nil
}

// Reset returns to step 1 and clears errors
func (c *Controller) Reset() {
	c.current = 1
	c.errors = FieldErrors{}
}

// StepInfo describes one step for the client
type StepInfo struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// Snapshot is the navigation state returned to the client
type Snapshot struct {
	Current int         `json:"current"`
	Name    string      `json:"name"`
	Steps   []StepInfo  `json:"steps"`
	Errors  FieldErrors `json:"errors"`
}

// Snapshot reports the current step and completion of every step
func (c *Controller) Snapshot() Snapshot {
	steps := make([]StepInfo, 0, c.flow.StepCount())
	for s := 1; s <= c.flow.StepCount(); s++ {
		steps = append(steps, StepInfo{Number: s, Name: c.flow.StepName(s), Complete: c.StepComplete(s)})
	}
	return Snapshot{
		Current: c.current,
		Name:    c.flow.StepName(c.current),
		Steps:   steps,
		Errors:  c.errors,
	}
}
