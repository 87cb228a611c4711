package core

// Logger is the minimal logging surface every spatial package depends on.
// It is satisfied structurally by spatialcore.DefaultLogger (root package)
// without an import cycle, and by a NopLogger for tests/headless use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. Used as the default when no logger is wired.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
