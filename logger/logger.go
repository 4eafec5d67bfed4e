package logger

// Level identifies log severity.
type Level string

const (
	DebugLevel Level = "debug"
	ErrorLevel Level = "error"
)

// LogFunc receives every message the core emits. The default sink discards
// everything, which keeps the core silent; SetLogger ignores a nil LogFunc.
type LogFunc func(level Level, msg string, keyvals ...interface{})

var logFunc LogFunc = func(Level, string, ...interface{}) {}

// SetLogger installs the host application's logging sink.
func SetLogger(f LogFunc) {
	if f != nil {
		logFunc = f
	}
}

// Debug logs a diagnostic message. If the last element of keyvals is a bool
// and true, the message is also appended to the trace ring buffer.
func Debug(msg string, keyvals ...interface{}) {
	trace := false
	if n := len(keyvals); n > 0 {
		if b, ok := keyvals[n-1].(bool); ok {
			trace = b
			keyvals = keyvals[:n-1]
		}
	}
	logFunc(DebugLevel, msg, keyvals...)
	if trace {
		Log(msg)
	}
}

// Error logs a message at error level.
func Error(msg string, keyvals ...interface{}) {
	logFunc(ErrorLevel, msg, keyvals...)
}
