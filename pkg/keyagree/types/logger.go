package types

// Logger is the logging collaborator. It is out of the engine's
// contract (spec: logging is an external collaborator) but every
// component accepts one. The engine defaults to
// definition.NewDefaultLogger when none is supplied; transport/relt has no
// default and uses the one it is given. Debug output is diagnostic only,
// never anything the engine's correctness depends on.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}
