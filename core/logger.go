package core

// Logger is implemented by services/logger. Extra args may carry errors, context maps
// or the acting identity (see the rollbar implementation).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
