package rtps

// Logger is the narrow structured-logging interface the core calls
// into. Production code wires it to zap (see cmd/rtpsd); tests use
// NopLogger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
}

// NopLogger discards everything. Used when a caller does not supply
// one, so the core never has to nil-check its logger.
type NopLogger struct{}

func (NopLogger) Debugw(string, ...interface{}) {}
func (NopLogger) Infow(string, ...interface{})  {}
func (NopLogger) Warnw(string, ...interface{})  {}
func (NopLogger) Errorw(string, ...interface{}) {}
