package script

import "fmt"

// Body is the code behind a Function. this is the bound receiver.
type Body func(this any, args ...any) error

// Function is a script callable. Two Functions are the same callback only
// if they are the same pointer.
type Function struct {
	name string
	this any
	body Body
}

// NewFunction creates an unbound function.
func NewFunction(name string, body Body) *Function {
	return &Function{name: name, body: body}
}

// Name returns the function name, possibly empty for anonymous functions.
func (f *Function) Name() string { return f.name }

// This returns the bound receiver.
func (f *Function) This() any { return f.this }

// Bind returns a new Function with the same body and receiver this.
// The result is a distinct callback.
func (f *Function) Bind(this any) *Function {
	return &Function{name: f.name, this: this, body: f.body}
}

// Invoke runs the body with the bound receiver. Callers on the scripting
// domain should prefer Context.Call, which also recovers panics.
func (f *Function) Invoke(args ...any) error {
	if f == nil || f.body == nil {
		return ErrNotCallable
	}
	return f.body(f.this, args...)
}

// String identifies the function in logs.
func (f *Function) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.name == "" {
		return fmt.Sprintf("<anonymous %p>", f)
	}
	return f.name
}
