package sesspool

// Logger interface is used to log some messages into user log.
//
// See github.com/derElektrobesen/sesspool/logadapter for zap and zerolog implementations.
type Logger interface {
	Printf(format string, args ...interface{})
}

// LoggerFunc allows to use an ordinary function (log.Printf for example) as Logger.
type LoggerFunc func(format string, args ...interface{})

func (f LoggerFunc) Printf(format string, args ...interface{}) {
	f(format, args...)
}

// DummyLogger is used to skip any message printed by the package.
type DummyLogger struct{}

func (DummyLogger) Printf(format string, args ...interface{}) {}
