package isolate

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/isolate/internal/transfer"
)

// EvalTask runs a script inside a target context and carries the result
// back by copy. Phase 1 copies the script out of the caller, phase 2
// executes it on the target lane and serializes the exported value,
// phase 3 materializes the value for the origin lane.
type EvalTask struct {
	target *Context
	script string
	out    []byte
}

// NewEvalTask is phase 1 for script evaluation.
func NewEvalTask(target *Context, script string) (Task, error) {
	if target == nil {
		return nil, errors.New("target context is required")
	}
	if script == "" {
		return nil, errors.New("script must not be empty")
	}
	return &EvalTask{target: target, script: script}, nil
}

func (t *EvalTask) Phase2() error {
	val, err := t.target.RunScript(t.script)
	if err != nil {
		return err
	}

	var exported interface{}
	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		exported = val.Export()
	}

	out, err := transfer.Encode(exported)
	if err != nil {
		return fmt.Errorf("eval result: %w", err)
	}
	t.out = out
	return nil
}

func (t *EvalTask) Phase3() (interface{}, error) {
	return transfer.Decode(t.out)
}

// GetTask reads a global from a target context by copy.
type GetTask struct {
	target *Context
	name   string
	out    []byte
}

// NewGetTask is phase 1 for a global read.
func NewGetTask(target *Context, name string) (Task, error) {
	if target == nil {
		return nil, errors.New("target context is required")
	}
	if name == "" {
		return nil, errors.New("global name must not be empty")
	}
	return &GetTask{target: target, name: name}, nil
}

func (t *GetTask) Phase2() error {
	out, err := transfer.Encode(t.target.Global(t.name))
	if err != nil {
		return fmt.Errorf("global %q: %w", t.name, err)
	}
	t.out = out
	return nil
}

func (t *GetTask) Phase3() (interface{}, error) {
	return transfer.Decode(t.out)
}

// SetTask writes a global into a target context. The value is serialized
// during phase 1, on the calling lane, so nothing owned by the origin
// ever reaches the target by reference.
type SetTask struct {
	target  *Context
	name    string
	payload []byte
}

// NewSetTask is phase 1 for a global write.
func NewSetTask(target *Context, name string, value interface{}) (Task, error) {
	if target == nil {
		return nil, errors.New("target context is required")
	}
	if name == "" {
		return nil, errors.New("global name must not be empty")
	}
	payload, err := transfer.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("global %q: %w", name, err)
	}
	return &SetTask{target: target, name: name, payload: payload}, nil
}

func (t *SetTask) Phase2() error {
	value, err := transfer.Decode(t.payload)
	if err != nil {
		return err
	}
	return t.target.SetGlobal(t.name, value)
}

func (t *SetTask) Phase3() (interface{}, error) {
	return nil, nil
}
