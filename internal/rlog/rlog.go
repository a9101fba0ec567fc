// Package rlog provides the structured, leveled logger used throughout
// rbdb, generalizing the teacher's log.New bootstrap to a zap logger
// capable of tagging every line with the session (connection) it
// belongs to — useful once the cursor's rescue/retry protocol starts
// interleaving materialization attempts across predicates.
package rlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps *zap.Logger with the few helpers rbdb's call sites need.
type Logger struct {
	*zap.Logger
}

// New builds a production-profile logger (JSON encoding, info level) for
// library embedding. It writes to stderr, zap's production default.
func New() (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z}, nil
}

// NewDevelopment builds a human-readable console logger, used by
// cmd/rbdbsql and tests.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z}, nil
}

// Nop returns a logger that discards everything, for callers that don't
// want output; rbdb.Open uses it until a logger is attached with
// WithLogger.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithSession returns a child logger tagging every subsequent line with
// the connection's session id, so interleaved rescue/retry diagnostics
// from concurrent *rbdb.DB handles can be told apart.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("session", sessionID))}
}
