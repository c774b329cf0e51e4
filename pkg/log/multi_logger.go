package log

// Tee returns a Logger that hands every event to each of loggers in order.
// Nil and NoopLogger entries are dropped and nested tees are flattened, so
// Tee() and Tee(nil) return NoopLogger and a single sink is returned as is.
// A typed nil pointer is not a nil Logger; callers must not pass one.
func Tee(loggers ...Logger) Logger {
	var sinks tee
	for _, l := range loggers {
		switch l := l.(type) {
		case nil, NoopLogger:
		case tee:
			sinks = append(sinks, l...)
		default:
			sinks = append(sinks, l)
		}
	}
	switch len(sinks) {
	case 0:
		return NoopLogger{}
	case 1:
		return sinks[0]
	}
	return sinks
}

type tee []Logger

func (t tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}
