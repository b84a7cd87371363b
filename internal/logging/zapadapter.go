package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/grpclog"
)

var _ grpclog.LoggerV2 = (*GRPCAdapter)(nil)

// GRPCAdapter forwards the gRPC library's internal logging to a zap logger.
// Install it with grpclog.SetLoggerV2.
type GRPCAdapter struct {
	logger    *zap.SugaredLogger
	verbosity int
}

// NewGRPCAdapter creates an adapter. gRPC's V(l) checks pass for
// l <= verbosity.
func NewGRPCAdapter(logger *Logger, verbosity int) *GRPCAdapter {
	return &GRPCAdapter{
		logger:    logger.Zap().WithOptions(zap.AddCallerSkip(2)).Sugar(),
		verbosity: verbosity,
	}
}

// Info implements grpclog.LoggerV2
func (a *GRPCAdapter) Info(args ...any) { a.logger.Info(args...) }

// Infoln implements grpclog.LoggerV2
func (a *GRPCAdapter) Infoln(args ...any) { a.logger.Info(sprintln(args)) }

// Infof implements grpclog.LoggerV2
func (a *GRPCAdapter) Infof(format string, args ...any) { a.logger.Infof(format, args...) }

// Warning implements grpclog.LoggerV2
func (a *GRPCAdapter) Warning(args ...any) { a.logger.Warn(args...) }

// Warningln implements grpclog.LoggerV2
func (a *GRPCAdapter) Warningln(args ...any) { a.logger.Warn(sprintln(args)) }

// Warningf implements grpclog.LoggerV2
func (a *GRPCAdapter) Warningf(format string, args ...any) { a.logger.Warnf(format, args...) }

// Error implements grpclog.LoggerV2
func (a *GRPCAdapter) Error(args ...any) { a.logger.Error(args...) }

// Errorln implements grpclog.LoggerV2
func (a *GRPCAdapter) Errorln(args ...any) { a.logger.Error(sprintln(args)) }

// Errorf implements grpclog.LoggerV2
func (a *GRPCAdapter) Errorf(format string, args ...any) { a.logger.Errorf(format, args...) }

// Fatal implements grpclog.LoggerV2
func (a *GRPCAdapter) Fatal(args ...any) { a.logger.Fatal(args...) }

// Fatalln implements grpclog.LoggerV2
func (a *GRPCAdapter) Fatalln(args ...any) { a.logger.Fatal(sprintln(args)) }

// Fatalf implements grpclog.LoggerV2
func (a *GRPCAdapter) Fatalf(format string, args ...any) { a.logger.Fatalf(format, args...) }

// V implements grpclog.LoggerV2. gRPC logs at verbosity above zero only
// when the underlying logger has debug enabled.
func (a *GRPCAdapter) V(l int) bool {
	if l > 0 && !a.logger.Desugar().Core().Enabled(zapcore.DebugLevel) {
		return false
	}
	return l <= a.verbosity
}

// sprintln is fmt.Sprintln without the trailing newline.
func sprintln(args []any) string {
	s := fmt.Sprintln(args...)
	return s[:len(s)-1]
}
