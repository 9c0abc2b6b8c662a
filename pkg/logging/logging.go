// Package logging sets up the structured logger used across voxelprep.
//
// Library packages log through L(), which is a no-op logger until Set is called,
// so importing voxelprep never produces output on its own. The CLI builds a real
// logger with New and installs it.
package logging

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names
const (
	FieldSubject  = "subject"
	FieldPath     = "path"
	FieldChannel  = "channel"
	FieldLocation = "location"
	FieldShape    = "shape"
	FieldType     = "type"
	FieldDecision = "decision"
	FieldError    = "error"
	FieldKind     = "error_kind"
)

// Config controls where log messages go and how verbose they are.
type Config struct {
	// File is the log file path. Empty sends messages to stderr.
	File string `yaml:"file"`

	// MaxSizeMB is the size in megabytes at which the log file is rotated.
	MaxSizeMB int `yaml:"maxSizeMB"`

	// MaxAgeDays is how long rotated log files are kept.
	MaxAgeDays int `yaml:"maxAgeDays"`

	// Verbose enables debug-level messages.
	Verbose bool `yaml:"verbose"`

	// JSON switches from the console encoder to JSON lines.
	JSON bool `yaml:"json"`
}

var global atomic.Pointer[zap.SugaredLogger]

func init() {
	global.Store(zap.NewNop().Sugar())
}

// L returns the process-wide logger.
func L() *zap.SugaredLogger {
	return global.Load()
}

// Set replaces the process-wide logger. A nil logger resets it to a no-op logger.
func Set(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	global.Store(l)
}

// New builds a logger from cfg. The returned closer flushes the logger and, when
// logging to a file, closes the rotating writer.
func New(cfg Config) (*zap.SugaredLogger, func() error, error) {
	var (
		sink   zapcore.WriteSyncer
		closer io.Closer
	)
	if cfg.File == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		lj := &lumberjack.Logger{
			Filename: cfg.File,
			MaxSize:  cfg.MaxSizeMB, // megabytes
			MaxAge:   cfg.MaxAgeDays, // days
		}
		sink = zapcore.AddSync(lj)
		closer = lj
	}

	var encoder zapcore.Encoder
	if cfg.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))).Sugar()
	closeFn := func() error {
		// Sync on stderr fails on some platforms; only file sinks report it.
		syncErr := logger.Sync()
		if closer == nil {
			return nil
		}
		if err := closer.Close(); err != nil {
			return err
		}
		return syncErr
	}
	return logger, closeFn, nil
}
