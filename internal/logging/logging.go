package logging

import "go.uber.org/zap"

// New builds the process logger. Development mode gets the human-readable
// console encoder, everything else structured JSON.
func New(env string) *zap.Logger {
	if env == "development" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
