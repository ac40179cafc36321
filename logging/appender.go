package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr matches zap's console encoder ISO8601 timestamp formatting.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

type stdoutAppender struct {
	encoder zapcore.Encoder
}

// NewStdoutAppender returns an Appender that writes colorized, console-formatted entries to
// stdout.
func NewStdoutAppender() Appender {
	return &stdoutAppender{encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig())}
}

// NewStdoutTestAppender returns an Appender like NewStdoutAppender but without level coloring,
// which is friendlier to captured test output.
func NewStdoutTestAppender() Appender {
	cfg := consoleEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return &stdoutAppender{encoder: zapcore.NewConsoleEncoder(cfg)}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func (sa *stdoutAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := sa.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = fmt.Fprint(os.Stdout, buf.String())
	return err
}

func (sa *stdoutAppender) Sync() error {
	return os.Stdout.Sync()
}

// callerToString renders a caller as "file:line", stripping the package/module prefix down to the
// last two path segments for readability.
func callerToString(caller *zapcore.EntryCaller) string {
	full := caller.FullPath()
	parts := strings.Split(full, "/")
	const maxSegments = 2
	if len(parts) > maxSegments {
		parts = parts[len(parts)-maxSegments:]
	}
	return strings.Join(parts, "/")
}
