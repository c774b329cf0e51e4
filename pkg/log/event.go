package log

import (
	"time"
)

// Event represents a control event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ContextID identifies the scripting context (UUID). Empty for writes
	// made by application code outside any script context.
	ContextID string `cbor:"2,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Group and Item name the control the event refers to, if any.
	Group string `cbor:"5,keyasint,omitempty"`
	Item  string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Write      *WriteEvent      `cbor:"10,keyasint,omitempty"`
	Notify     *NotifyEvent     `cbor:"11,keyasint,omitempty"`
	Takeover   *TakeoverEvent   `cbor:"12,keyasint,omitempty"`
	Timer      *TimerEvent      `cbor:"13,keyasint,omitempty"`
	Connection *ConnectionEvent `cbor:"14,keyasint,omitempty"`
	Error      *ErrorEventData  `cbor:"15,keyasint,omitempty"`
}

// Layer indicates which part of the bridge captured the event.
type Layer uint8

const (
	// LayerEngine is the control registry (application and real-time writers).
	LayerEngine Layer = 0
	// LayerScript is the scripting domain (deliveries, timers, callbacks).
	LayerScript Layer = 1
	// LayerBridge is the script-facing engine API.
	LayerBridge Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerEngine:
		return "ENGINE"
	case LayerScript:
		return "SCRIPT"
	case LayerBridge:
		return "BRIDGE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryWrite indicates a value write to a control.
	CategoryWrite Category = 0
	// CategoryNotify indicates a change notification delivery.
	CategoryNotify Category = 1
	// CategoryTakeover indicates a soft-takeover decision or state change.
	CategoryTakeover Category = 2
	// CategoryTimer indicates a script timer lifecycle event.
	CategoryTimer Category = 3
	// CategoryConnection indicates a connection lifecycle event.
	CategoryConnection Category = 4
	// CategoryError indicates an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryWrite:
		return "WRITE"
	case CategoryNotify:
		return "NOTIFY"
	case CategoryTakeover:
		return "TAKEOVER"
	case CategoryTimer:
		return "TIMER"
	case CategoryConnection:
		return "CONNECTION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// WriteEvent captures a write to a control cell.
type WriteEvent struct {
	// Value is the value that was requested.
	Value float64 `cbor:"1,keyasint"`

	// Previous is the value before the write.
	Previous float64 `cbor:"2,keyasint"`

	// Revision is the cell revision after the write (0 when rejected).
	Revision uint64 `cbor:"3,keyasint,omitempty"`

	// Parameter is true when the write came through the [0,1] parameter view.
	Parameter bool `cbor:"4,keyasint,omitempty"`

	// Rejected is true when the write did not commit.
	Rejected bool `cbor:"5,keyasint,omitempty"`

	// Reason explains a rejection ("nan", "takeover").
	Reason string `cbor:"6,keyasint,omitempty"`
}

// NotifyEvent captures a notification delivered to, or dropped for, a connection.
type NotifyEvent struct {
	// ConnectionID identifies the connection.
	ConnectionID uint32 `cbor:"1,keyasint"`

	// Value is the delivered value.
	Value float64 `cbor:"2,keyasint"`

	// Revision is the cell revision that produced the notification.
	Revision uint64 `cbor:"3,keyasint,omitempty"`

	// Dropped is true when the connection was gone at delivery time.
	Dropped bool `cbor:"4,keyasint,omitempty"`

	// Direct is true for synchronous Connection.Trigger invocations.
	Direct bool `cbor:"5,keyasint,omitempty"`
}

// TakeoverAction identifies a soft-takeover event.
type TakeoverAction uint8

const (
	// TakeoverEnable indicates the guard was armed.
	TakeoverEnable TakeoverAction = 0
	// TakeoverDisable indicates the guard was disarmed.
	TakeoverDisable TakeoverAction = 1
	// TakeoverIgnoreNext indicates the next write will be ignored.
	TakeoverIgnoreNext TakeoverAction = 2
	// TakeoverReject indicates a write was suppressed.
	TakeoverReject TakeoverAction = 3
)

// String returns the takeover action name.
func (a TakeoverAction) String() string {
	switch a {
	case TakeoverEnable:
		return "ENABLE"
	case TakeoverDisable:
		return "DISABLE"
	case TakeoverIgnoreNext:
		return "IGNORE_NEXT"
	case TakeoverReject:
		return "REJECT"
	default:
		return "UNKNOWN"
	}
}

// TakeoverEvent captures soft-takeover decisions.
type TakeoverEvent struct {
	Action TakeoverAction `cbor:"1,keyasint"`

	// Parameter is the parameter the rejected write implied.
	Parameter float64 `cbor:"2,keyasint,omitempty"`

	// Current is the cell parameter at decision time.
	Current float64 `cbor:"3,keyasint,omitempty"`
}

// TimerAction identifies a timer lifecycle event.
type TimerAction uint8

const (
	// TimerStart indicates a timer was scheduled.
	TimerStart TimerAction = 0
	// TimerFire indicates a timer callback ran.
	TimerFire TimerAction = 1
	// TimerStop indicates a timer was cancelled.
	TimerStop TimerAction = 2
)

// String returns the timer action name.
func (a TimerAction) String() string {
	switch a {
	case TimerStart:
		return "START"
	case TimerFire:
		return "FIRE"
	case TimerStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// TimerEvent captures script timer lifecycle events.
type TimerEvent struct {
	Action TimerAction `cbor:"1,keyasint"`

	// TimerID is the handle returned to the script.
	TimerID int `cbor:"2,keyasint"`

	// Interval is the effective (clamped) period. Stored as nanoseconds.
	Interval time.Duration `cbor:"3,keyasint,omitempty"`

	// OneShot is true for single-shot timers.
	OneShot bool `cbor:"4,keyasint,omitempty"`
}

// ConnectionAction identifies a connection lifecycle event.
type ConnectionAction uint8

const (
	// ConnectionOpen indicates a connection was made.
	ConnectionOpen ConnectionAction = 0
	// ConnectionClose indicates a connection was removed.
	ConnectionClose ConnectionAction = 1
	// ConnectionTrigger indicates a connection or control was triggered.
	ConnectionTrigger ConnectionAction = 2
)

// String returns the connection action name.
func (a ConnectionAction) String() string {
	switch a {
	case ConnectionOpen:
		return "OPEN"
	case ConnectionClose:
		return "CLOSE"
	case ConnectionTrigger:
		return "TRIGGER"
	default:
		return "UNKNOWN"
	}
}

// ConnectionEvent captures connection lifecycle events.
type ConnectionEvent struct {
	Action ConnectionAction `cbor:"1,keyasint"`

	// ConnectionID identifies the connection.
	ConnectionID uint32 `cbor:"2,keyasint"`

	// Name is the callback name for name-bound connections.
	Name string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
