// Package logging wires go.uber.org/zap, the teacher's structured-logging
// dependency, into the server bootstrap and the HTTP handlers (SPEC_FULL
// §9 ambient stack).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap.Logger, switching to a development
// encoder when debug is true (verbose, human-readable console output
// instead of JSON).
func New(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	return zap.NewProduction()
}
