package script

// Handle is an existing connection passed back in a callback position.
type Handle interface {
	Disconnect() bool
	IsConnected() bool
}

// TargetKind tells how a Target refers to its callback.
type TargetKind uint8

const (
	// TargetNone is the zero Target; it resolves to nothing.
	TargetNone TargetKind = iota

	// TargetName refers to a global function by name.
	TargetName

	// TargetValue refers to a function value.
	TargetValue

	// TargetHandle refers to an existing connection.
	TargetHandle
)

// String returns a human-readable kind name.
func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "NONE"
	case TargetName:
		return "NAME"
	case TargetValue:
		return "VALUE"
	case TargetHandle:
		return "HANDLE"
	default:
		return "UNKNOWN"
	}
}

// Target is what a script passed in a callback position.
type Target struct {
	kind   TargetKind
	name   string
	fn     *Function
	handle Handle
}

// ByName refers to the global function called name.
func ByName(name string) Target {
	return Target{kind: TargetName, name: name}
}

// ByValue refers to fn itself.
func ByValue(fn *Function) Target {
	if fn == nil {
		return Target{}
	}
	return Target{kind: TargetValue, fn: fn}
}

// ByHandle refers to an existing connection.
func ByHandle(h Handle) Target {
	if h == nil {
		return Target{}
	}
	return Target{kind: TargetHandle, handle: h}
}

// TargetOf classifies a loosely typed script argument. Strings become
// ByName, functions ByValue and handles ByHandle. Anything else, including
// nil, yields the zero Target.
func TargetOf(v any) Target {
	switch t := v.(type) {
	case Target:
		return t
	case string:
		return ByName(t)
	case *Function:
		return ByValue(t)
	case Handle:
		return ByHandle(t)
	default:
		return Target{}
	}
}

// Kind returns the target kind.
func (t Target) Kind() TargetKind { return t.kind }

// Name returns the function name of a TargetName.
func (t Target) Name() string { return t.name }

// Function returns the function of a TargetValue.
func (t Target) Function() *Function { return t.fn }

// Handle returns the connection of a TargetHandle.
func (t Target) Handle() Handle { return t.handle }

// IsZero reports whether the target refers to nothing.
func (t Target) IsZero() bool { return t.kind == TargetNone }
