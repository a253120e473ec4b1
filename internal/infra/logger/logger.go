package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// serviceName is stamped on every production log line so aggregated streams
// stay attributable.
const serviceName = "foldly-server"

// Config drives how the zap logger is built. Development selects the pretty
// console encoder; production emits JSON with a service field.
type Config struct {
	Development bool
	Level       string
}

var (
	mu     sync.Mutex
	global *zap.Logger
	colors = stdoutIsColorTerminal()
)

// MustInit builds the logger, stores it globally for Sync, and panics when
// the config is invalid.
func MustInit(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	global = l
	return l
}

// Sync flushes the global logger. Errors from non-syncable stdout are
// swallowed so deferred shutdown paths stay quiet.
func Sync() error {
	mu.Lock()
	l := global
	mu.Unlock()
	if l == nil {
		return nil
	}

	if err := l.Sync(); err != nil {
		if errors.Is(err, syscall.ENOTTY) || errors.Is(err, os.ErrInvalid) {
			return nil
		}
		return err
	}
	return nil
}

// New returns a zap.Logger configured according to cfg.
func New(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}

	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig = consoleEncoderConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig = jsonEncoderConfig()
		opts = append(opts, zap.Fields(zap.String("service", serviceName)))
	}

	if cfg.Level != "" {
		level := zapcore.InfoLevel
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build(opts...)
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.ConsoleSeparator = " | "
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := fmt.Sprintf("%-5s", strings.ToUpper(level.String()))
		if colors {
			enc.AppendString(levelColor(level) + label + colorReset)
			return
		}
		enc.AppendString(label)
	}
	return cfg
}

func stdoutIsColorTerminal() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorCyan   = "\x1b[36m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
)

func levelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorCyan
	case zapcore.WarnLevel:
		return colorYellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorRed
	default:
		return colorGreen
	}
}
