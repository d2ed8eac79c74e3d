package scripting

import (
	"context"

	"github.com/dop251/goja"
)

// Engine runs document scripts against a Viewer.
type Engine struct {
	vm *goja.Runtime
}

// NewEngine returns an engine exposing v as the global app object and as
// the document bound to this.
func NewEngine(v Viewer) (*Engine, error) {
	e := &Engine{vm: goja.New()}
	if err := e.register(v); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

func (e *Engine) register(v Viewer) error {
	app := e.vm.NewObject()
	err := app.Set("alert", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		v.Alert(msg)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	if err := app.Set("viewerType", "pdfgen"); err != nil {
		return err
	}
	if err := e.vm.Set("app", app); err != nil {
		return err
	}

	global := e.vm.GlobalObject()
	err = global.DefineAccessorProperty("numPages",
		e.vm.ToValue(func(goja.FunctionCall) goja.Value {
			return e.vm.ToValue(v.NumPages())
		}),
		nil,
		goja.FLAG_TRUE, // Configurable
		goja.FLAG_TRUE, // Enumerable
	)
	if err != nil {
		return err
	}
	return global.Set("print", func(goja.FunctionCall) goja.Value {
		v.Print()
		return goja.Undefined()
	})
}
