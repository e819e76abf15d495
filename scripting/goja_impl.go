package scripting

import (
	"context"

	"github.com/dop251/goja"

	"github.com/fieldlens/fieldlens/geometry"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
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

func (e *GojaEngine) RegisterDOM(dom ViewerDOM) error {
	// Expose 'app' object
	appObj := e.vm.NewObject()
	err := appObj.Set("alert", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		dom.Alert(msg)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	e.vm.Set("app", appObj)

	e.vm.Set("goToPage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		dom.GoToPage(int(call.Arguments[0].ToInteger()))
		return goja.Undefined()
	})

	// setZoom accepts a mode name ("fit-width") or a numeric factor.
	e.vm.Set("setZoom", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		arg := call.Arguments[0]
		if _, ok := arg.Export().(string); ok {
			dom.SetZoom(arg.String(), 0)
		} else {
			dom.SetZoom("", arg.ToFloat())
		}
		return goja.Undefined()
	})

	e.vm.Set("field", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		field, err := dom.Field(name)
		if err != nil || field == nil {
			return goja.Null()
		}

		obj := e.vm.NewObject()
		obj.DefineAccessorProperty("value",
			e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
				return e.vm.ToValue(field.Value())
			}),
			e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
				if len(call.Arguments) > 0 {
					field.SetValue(call.Arguments[0].String())
				}
				return goja.Undefined()
			}),
			goja.FLAG_TRUE, // Configurable
			goja.FLAG_TRUE, // Enumerable
		)
		obj.Set("regions", e.vm.ToValue(exportRegions(field.Regions())))
		obj.Set("navigate", func(call goja.FunctionCall) goja.Value {
			field.Navigate()
			return goja.Undefined()
		})
		return obj
	})

	return nil
}

func exportRegions(rs geometry.RegionSet) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rs))
	for i, q := range rs {
		out[i] = map[string]interface{}{
			"page": q.Page,
			"x1":   q.X1, "y1": q.Y1,
			"x2": q.X2, "y2": q.Y2,
			"x3": q.X3, "y3": q.Y3,
			"x4": q.X4, "y4": q.Y4,
		}
	}
	return out
}
