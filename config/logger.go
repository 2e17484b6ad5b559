package config

import (
	"log"
	"os"

	"go.uber.org/zap"
)

// NewLogger builds the process-wide zap logger. Development mode gives
// console output when LOG_MODE=dev.
func NewLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("LOG_MODE") == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}
