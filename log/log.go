package log

import "go.uber.org/zap"

// Logger is a no-op until EnsureLogger runs, so packages can log from tests.
var Logger = zap.NewNop()

func EnsureLogger(debug bool) {
	var err error
	if debug {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		Logger = zap.NewExample()
	}
}

func Sync() {
	_ = Logger.Sync()
}
