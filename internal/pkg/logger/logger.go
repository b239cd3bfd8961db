package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the logging interface the rest of the service depends on.
type ZapLogger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	Sync() error
}

type Config struct {
	IsDevelopment     bool
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type zapLogger struct {
	*zap.Logger
}

func NewZapLogger(cfg *Config) ZapLogger {
	level := zapcore.InfoLevel
	if l, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = l
	}

	var encoderCfg zapcore.EncoderConfig
	if cfg.IsDevelopment {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)

	opts := []zap.Option{}
	if !cfg.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &zapLogger{zap.New(core, opts...)}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ZapLogger {
	return &zapLogger{zap.NewNop()}
}
